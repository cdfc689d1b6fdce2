package core

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// CollectorProto is the protocol recorded for collected samples; counter
// sources do not split traffic by protocol.
const CollectorProto = "any"

// Collector polls counter sources and adds the deltas into cycle time slots
// of the live profile.
type Collector struct {
	sources  []CounterSource
	store    *Store
	profile  string
	cycle    int64
	interval time.Duration
	last     map[string]map[string]Counter
	stopCh   chan struct{}
	mu       sync.Mutex
	paused   bool
	now      func() time.Time
}

func NewCollector(store *Store, cfg *Config, sources ...CounterSource) *Collector {
	interval := time.Duration(cfg.CollectorIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Duration(DefaultCycleTime) * time.Second
	}
	return &Collector{
		sources:  sources,
		store:    store,
		profile:  NormalizeProfileName(cfg.LiveProfile),
		cycle:    cfg.CycleTimeSec,
		interval: interval,
		last:     make(map[string]map[string]Counter),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

func (c *Collector) Start() {
	if err := c.ensureProfile(); err != nil {
		log.Printf("Collector: cannot register profile %s: %v", c.profile, err)
	}
	go c.loop()
}

func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) ensureProfile() error {
	_, err := c.store.GetProfile(context.Background(), c.profile)
	if errors.Is(err, ErrUnknownProfile) {
		return c.store.SaveProfile(Profile{Name: c.profile, Type: ProfileLive})
	}
	return err
}

func (c *Collector) loop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collectOnce(context.Background())
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) TriggerOnce(ctx context.Context) {
	c.collectOnce(ctx)
}

func (c *Collector) SetPaused(p bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = p
}

func (c *Collector) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Collector) collectOnce(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return
	}

	for _, src := range c.sources {
		start := time.Now()
		slot := floorTo(c.now().Unix(), c.cycle)

		counters, err := src.ReadCounters(ctx)
		if err != nil {
			log.Printf("Collector: %s read error: %v", src.Name(), err)
			c.store.LogCollectorRun(slot, time.Since(start).Milliseconds(), 0, err.Error(), src.Name())
			continue
		}

		batch := c.deltas(src.Name(), slot, counters)
		if err := c.store.BulkInsert(batch); err != nil {
			log.Printf("Collector: %s bulk insert error: %v", src.Name(), err)
			c.store.LogCollectorRun(slot, time.Since(start).Milliseconds(), int64(len(batch)), err.Error(), src.Name())
			continue
		}
		c.store.LogCollectorRun(slot, time.Since(start).Milliseconds(), int64(len(batch)), "", src.Name())
		if len(batch) > 0 {
			log.Printf("Collector: %s inserted %d samples", src.Name(), len(batch))
		}
	}
}

// deltas turns cumulative counters into per-slot samples. The first reading
// of a channel only primes it, and a counter that went backwards is treated
// as reset.
func (c *Collector) deltas(source string, slot int64, counters map[string]Counter) []Sample {
	prev, ok := c.last[source]
	if !ok {
		prev = make(map[string]Counter)
		c.last[source] = prev
	}

	var batch []Sample
	for channel, cur := range counters {
		old, seen := prev[channel]
		prev[channel] = cur
		if !seen {
			continue
		}
		d := Counter{
			Flows:   counterDelta(cur.Flows, old.Flows),
			Packets: counterDelta(cur.Packets, old.Packets),
			Bytes:   counterDelta(cur.Bytes, old.Bytes),
		}
		if d == (Counter{}) {
			continue
		}
		batch = append(batch, Sample{
			Profile:   c.profile,
			Channel:   channel,
			Proto:     CollectorProto,
			Timestamp: slot,
			Flows:     d.Flows,
			Packets:   d.Packets,
			Bytes:     d.Bytes,
		})
	}

	for channel := range prev {
		if _, ok := counters[channel]; !ok {
			delete(prev, channel)
		}
	}
	return batch
}

func counterDelta(cur, old int64) int64 {
	if cur < old {
		return cur
	}
	return cur - old
}
