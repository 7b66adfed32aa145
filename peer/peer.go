// Package peer tracks the single remote endpoint of the tunnel.
//
// A server tracker starts empty and adopts the source of every inbound
// datagram, so the most recent sender always wins. There is no
// authentication: a second source silently takes the session over. A client
// tracker is seeded with the server address and never changes.
package peer

import (
	"net"
	"sync"
	"time"

	"github.com/astaxie/beego/logs"
)

type Tracker struct {
	sync.RWMutex
	addr      *net.UDPAddr
	fixed     bool
	timestamp time.Time
	known     chan struct{}
}

// NewTracker returns an empty tracker for the server role.
func NewTracker() *Tracker {
	return &Tracker{known: make(chan struct{})}
}

// NewFixedTracker returns a tracker pinned to addr for the client role.
func NewFixedTracker(addr *net.UDPAddr) *Tracker {
	t := &Tracker{addr: cloneAddr(addr), fixed: true, timestamp: time.Now(), known: make(chan struct{})}
	close(t.known)
	return t
}

// Observe records src as the current peer and reports whether it changed.
// A fixed tracker ignores src.
func (t *Tracker) Observe(src *net.UDPAddr) bool {
	if t.fixed || src == nil {
		return false
	}

	t.Lock()
	defer t.Unlock()

	t.timestamp = time.Now()
	if t.addr != nil && sameAddr(t.addr, src) {
		return false
	}

	old := t.addr
	t.addr = cloneAddr(src)
	if old == nil {
		close(t.known)
		logs.Info("peer learned %s", src.String())
	} else {
		logs.Warn("peer changed %s -> %s", old.String(), src.String())
	}
	return true
}

func (t *Tracker) IsKnown() bool {
	t.RLock()
	defer t.RUnlock()
	return t.addr != nil
}

// Current returns a copy of the peer address, or nil before one is known.
func (t *Tracker) Current() *net.UDPAddr {
	t.RLock()
	defer t.RUnlock()
	if t.addr == nil {
		return nil
	}
	return cloneAddr(t.addr)
}

// LastSeen is the time of the latest Observe of the current peer.
func (t *Tracker) LastSeen() time.Time {
	t.RLock()
	defer t.RUnlock()
	return t.timestamp
}

// Known is closed once a peer address is available.
func (t *Tracker) Known() <-chan struct{} {
	return t.known
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP) && a.Zone == b.Zone
}

func cloneAddr(a *net.UDPAddr) *net.UDPAddr {
	cp := *a
	cp.IP = append(net.IP(nil), a.IP...)
	return &cp
}
