package tunnel

import (
	"context"
	"net"
	"time"

	"github.com/astaxie/beego/logs"
	"golang.org/x/sync/errgroup"

	"github.com/easymesh/tunbridge/peer"
	"github.com/easymesh/tunbridge/util/tun"
)

// PacketConn is the datagram side of the tunnel, satisfied by *udp.Conn.
type PacketConn interface {
	Recv(p []byte) (int, *net.UDPAddr, error)
	Send(body []byte, dst *net.UDPAddr) error
	Close() error
}

// Session owns both handles and the peer tracker for the life of the
// process.
type Session struct {
	cfg      Config
	dev      tun.Device
	conn     PacketConn
	tracker  *peer.Tracker
	counters Counters
	trace    func(format string, v ...interface{})
}

// NewSession takes ownership of dev and conn. In client role the tracker is
// seeded with the server address and peer learning is off.
func NewSession(cfg Config, dev tun.Device, conn PacketConn) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, dev: dev, conn: conn, trace: func(string, ...interface{}) {}}
	if cfg.Debug {
		s.trace = func(format string, v ...interface{}) { logs.Debug(format, v...) }
	}

	if cfg.Role == Client {
		server, err := cfg.ServerAddr()
		if err != nil {
			return nil, err
		}
		s.tracker = peer.NewFixedTracker(server)
	} else {
		s.tracker = peer.NewTracker()
	}
	return s, nil
}

// Run forwards frames in both directions until ctx is done or a handle
// fails. Any returned error other than ctx's is fatal. Both handles are
// closed on return.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.netToTun(gctx) })
	g.Go(func() error { return s.tunToNet(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		s.dev.Close()
		s.conn.Close()
		return nil
	})

	err := g.Wait()
	c := s.counters.Snapshot()
	if s.tracker.IsKnown() {
		logs.Info("session stopped, peer %s last seen %s", s.tracker.Current(), s.tracker.LastSeen().Format(time.RFC3339))
	}
	logs.Info("session stopped, net2tun %d tun2net %d", c.NetToTun, c.TunToNet)
	return err
}

func (s *Session) Counters() CounterSnapshot {
	return s.counters.Snapshot()
}

// Peer is the tracked remote address, nil until one is known.
func (s *Session) Peer() *net.UDPAddr {
	return s.tracker.Current()
}
