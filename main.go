package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ogstra/ogs-flownav/api"
	"github.com/Ogstra/ogs-flownav/core"
)

func main() {
	collectorOnly := flag.Bool("collector-only", false, "Run counter collector only (no HTTP server)")
	configPath := flag.String("config", "config.json", "Path to config.json")
	dbPath := flag.String("db", "", "Path to flows.db")
	listenAddr := flag.String("listen", "", "HTTP listen address")
	initConfig := flag.Bool("init-config", false, "Write the effective config to -config and exit")
	flag.Parse()

	cfg := core.LoadConfig(*configPath)
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if *initConfig {
		if err := cfg.SaveAppConfig(); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Printf("Config written to %s", cfg.ConfigPath)
		return
	}

	log.Printf("Starting OGS flow navigator...")
	log.Printf("Listen: %s, database: %s, cycle: %ds", cfg.ListenAddr, cfg.DatabasePath, cfg.CycleTimeSec)

	if *collectorOnly {
		log.Printf("Collector-only mode: starting counter collector without HTTP server")
		store, err := core.NewStore(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer store.Close()

		sources := api.Sources(cfg)
		collector := core.NewCollector(store, cfg, sources...)
		collector.Start()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Stopping collector...")
		collector.Stop()
		for _, src := range sources {
			if c, ok := src.(*core.StatsClient); ok {
				c.Close()
			}
		}
		return
	}

	go func() {
		api.StartServer(cfg)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
}
