package core

import (
	"context"

	"golang.zx2c4.com/wireguard/wgctrl"
)

// WireGuardSource reads transfer counters of local WireGuard devices. Each
// device is one channel; only bytes are counted.
type WireGuardSource struct{}

func (WireGuardSource) Name() string {
	return "wireguard"
}

func (WireGuardSource) ReadCounters(ctx context.Context) (map[string]Counter, error) {
	c, err := wgctrl.New()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	devices, err := c.Devices()
	if err != nil {
		return nil, err
	}

	result := make(map[string]Counter, len(devices))
	for _, dev := range devices {
		var cur Counter
		for _, peer := range dev.Peers {
			cur.Bytes += peer.ReceiveBytes + peer.TransmitBytes
		}
		result[dev.Name] = cur
	}
	return result, nil
}
