package tunnel

import "sync/atomic"

type Direction int

const (
	NetToTun Direction = iota
	TunToNet
)

func (d Direction) String() string {
	if d == NetToTun {
		return "NET2TUN"
	}
	return "TUN2NET"
}

// Counters holds one monotonic frame count per direction. They are never
// reset.
type Counters struct {
	net2tun atomic.Uint64
	tun2net atomic.Uint64
}

// Increment bumps the counter for d and returns its new value.
func (c *Counters) Increment(d Direction) uint64 {
	if d == NetToTun {
		return c.net2tun.Add(1)
	}
	return c.tun2net.Add(1)
}

type CounterSnapshot struct {
	NetToTun uint64
	TunToNet uint64
}

func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{NetToTun: c.net2tun.Load(), TunToNet: c.tun2net.Load()}
}
