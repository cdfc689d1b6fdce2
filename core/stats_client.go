package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	statsService "github.com/xtls/xray-core/app/stats/command"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Counter holds cumulative counters of one channel.
type Counter struct {
	Flows   int64
	Packets int64
	Bytes   int64
}

// CounterSource reads cumulative counters keyed by channel.
type CounterSource interface {
	Name() string
	ReadCounters(ctx context.Context) (map[string]Counter, error)
}

const getStatsMethod = "/v2ray.core.app.stats.command.StatsService/GetStats"

// StatsClient reads inbound traffic counters from an xray/v2ray stats API.
// Each inbound tag becomes one channel.
type StatsClient struct {
	addr     string
	inbounds []string
	mu       sync.Mutex
	conn     *grpc.ClientConn
}

func NewStatsClient(addr string, inbounds []string) *StatsClient {
	return &StatsClient{addr: addr, inbounds: inbounds}
}

func (c *StatsClient) Name() string {
	return "xray-stats"
}

func (c *StatsClient) ensureConn() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := grpc.Dial(c.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c.conn, nil
}

func (c *StatsClient) getStat(ctx context.Context, conn *grpc.ClientConn, name string) (int64, bool) {
	var resp statsService.GetStatsResponse
	if err := conn.Invoke(ctx, getStatsMethod, &statsService.GetStatsRequest{Name: name}, &resp); err != nil || resp.Stat == nil {
		return 0, false
	}
	return resp.Stat.Value, true
}

func (c *StatsClient) ReadCounters(ctx context.Context) (map[string]Counter, error) {
	conn, err := c.ensureConn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := make(map[string]Counter)
	for _, tag := range c.inbounds {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		up, okUp := c.getStat(ctx, conn, fmt.Sprintf("inbound>>>%s>>>traffic>>>uplink", tag))
		down, okDown := c.getStat(ctx, conn, fmt.Sprintf("inbound>>>%s>>>traffic>>>downlink", tag))
		if !okUp && !okDown {
			continue
		}
		result[tag] = Counter{Bytes: up + down}
	}

	if len(result) == 0 && len(c.inbounds) > 0 {
		return nil, fmt.Errorf("no inbound stats found for %+v", c.inbounds)
	}
	return result, nil
}

func (c *StatsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
