package tunnel

import (
	"context"

	"github.com/easymesh/tunbridge/util/ip"
	"github.com/easymesh/tunbridge/util/tun"
)

// netToTun receives datagrams, adopts the sender as peer and injects each
// payload unmodified into the interface.
func (s *Session) netToTun(ctx context.Context) error {
	buff := make([]byte, s.cfg.BufferSize)
	for {
		cnt, srcAddr, err := s.conn.Recv(buff)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return IOError("receive from network", err)
		}

		s.tracker.Observe(srcAddr)
		n := s.counters.Increment(NetToTun)
		s.trace("NET2TUN %d: Read %d bytes from the network, peer %s%s", n, cnt, srcAddr, s.describe(buff[:cnt]))

		if err = s.dev.Write(buff[:cnt]); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return IOError("write to interface", err)
		}
		s.trace("NET2TUN %d: Written %d bytes to the %s interface", n, cnt, s.cfg.Mode)
	}
}

// tunToNet does not touch the interface until a peer is known: frames
// stay queued in the kernel meanwhile.
func (s *Session) tunToNet(ctx context.Context) error {
	select {
	case <-s.tracker.Known():
	case <-ctx.Done():
		return ctx.Err()
	}

	buff := make([]byte, s.cfg.BufferSize)
	for {
		cnt, err := s.dev.Read(buff)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return IOError("read from interface", err)
		}

		n := s.counters.Increment(TunToNet)
		s.trace("TUN2NET %d: Read %d bytes from the %s interface%s", n, cnt, s.cfg.Mode, s.describe(buff[:cnt]))

		dst := s.tracker.Current()
		if err = s.conn.Send(buff[:cnt], dst); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return IOError("send to network", err)
		}
		s.trace("TUN2NET %d: Written %d bytes to the network, peer %s", n, cnt, dst)
	}
}

// describe summarises an IPv4 packet for traces.
func (s *Session) describe(frame []byte) string {
	if !s.cfg.Debug || s.cfg.Mode != tun.TUN {
		return ""
	}
	iph := ip.IP4HeaderDecoder(frame)
	if iph == nil {
		return ""
	}
	return " [" + iph.String() + "]"
}
