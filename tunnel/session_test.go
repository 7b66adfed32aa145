package tunnel

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easymesh/tunbridge/util/tun"
	"github.com/easymesh/tunbridge/util/udp"
)

const waitTimeout = 2 * time.Second

type harness struct {
	session *Session
	dev     *chanDevice
	conn    *udp.Conn
	cancel  context.CancelFunc
	done    chan error
}

func startSession(t *testing.T, cfg Config, conn *udp.Conn) *harness {
	t.Helper()
	dev := newChanDevice(cfg.Ifname)
	s, err := NewSession(cfg, dev, conn)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{session: s, dev: dev, conn: conn, cancel: cancel, done: make(chan error, 1)}
	go func() { h.done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(waitTimeout):
			t.Error("session did not stop")
		}
	})
	return h
}

func serverConfig(bufferSize int) Config {
	cfg := DefaultConfig()
	cfg.Ifname = "tun0"
	cfg.Role = Server
	cfg.BufferSize = bufferSize
	return cfg
}

func startServer(t *testing.T, bufferSize int) *harness {
	t.Helper()
	conn, err := udp.OpenUdp("127.0.0.1:0")
	require.NoError(t, err)
	return startSession(t, serverConfig(bufferSize), conn)
}

func openPeer(t *testing.T) *udp.Conn {
	t.Helper()
	c, err := udp.OpenUdp("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func payload(size int, seed byte) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

func (h *harness) nextWritten(t *testing.T) []byte {
	t.Helper()
	select {
	case frame := <-h.dev.written:
		return frame
	case <-time.After(waitTimeout):
		t.Fatal("no frame written to the interface")
		return nil
	}
}

func recvDatagram(t *testing.T, c *udp.Conn, wait time.Duration) ([]byte, *net.UDPAddr, error) {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(wait)))
	buf := make([]byte, MaxBufferSize)
	n, src, err := c.Recv(buf)
	if err != nil {
		return nil, nil, err
	}
	return buf[:n], src, nil
}

func TestServerLearnsPeerAndForwardsBothWays(t *testing.T) {
	h := startServer(t, DefaultBufferSize)
	client := openPeer(t)

	d1 := payload(20, 0x45)
	require.NoError(t, client.Send(d1, h.conn.LocalAddr()))
	assert.Equal(t, d1, h.nextWritten(t))
	assert.Equal(t, client.LocalAddr().String(), h.session.Peer().String())

	f1 := payload(60, 0x10)
	h.dev.inject(f1)
	body, src, err := recvDatagram(t, client, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, f1, body)
	assert.Equal(t, h.conn.LocalAddr().Port, src.Port)

	c := h.session.Counters()
	assert.Equal(t, uint64(1), c.NetToTun)
	assert.Equal(t, uint64(1), c.TunToNet)
}

func TestServerHoldsFramesUntilPeerKnown(t *testing.T) {
	h := startServer(t, DefaultBufferSize)

	frame := payload(40, 0x01)
	h.dev.inject(frame)
	time.Sleep(100 * time.Millisecond)

	assert.Nil(t, h.session.Peer())
	assert.Equal(t, uint64(0), h.session.Counters().TunToNet)
	assert.Len(t, h.dev.inbound, 1, "interface must not be read before a peer is known")

	client := openPeer(t)
	require.NoError(t, client.Send([]byte("hello"), h.conn.LocalAddr()))
	h.nextWritten(t)

	body, _, err := recvDatagram(t, client, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, frame, body)
	assert.Equal(t, uint64(1), h.session.Counters().TunToNet)
}

func TestNewestSenderTakesOverPeer(t *testing.T) {
	h := startServer(t, DefaultBufferSize)
	first := openPeer(t)
	second := openPeer(t)

	require.NoError(t, first.Send([]byte("first"), h.conn.LocalAddr()))
	h.nextWritten(t)
	require.NoError(t, second.Send([]byte("second"), h.conn.LocalAddr()))
	h.nextWritten(t)
	assert.Equal(t, second.LocalAddr().String(), h.session.Peer().String())

	frame := payload(32, 0x20)
	h.dev.inject(frame)
	body, _, err := recvDatagram(t, second, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, frame, body)

	_, _, err = recvDatagram(t, first, 200*time.Millisecond)
	assert.Error(t, err, "previous peer must not receive traffic")
}

func TestCountersAdvanceByFramesForwarded(t *testing.T) {
	h := startServer(t, DefaultBufferSize)
	client := openPeer(t)

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, client.Send(payload(30, byte(i)), h.conn.LocalAddr()))
		assert.Equal(t, payload(30, byte(i)), h.nextWritten(t))
		assert.Equal(t, uint64(i+1), h.session.Counters().NetToTun)
	}

	for i := 0; i < n; i++ {
		h.dev.inject(payload(50, byte(i)))
		body, _, err := recvDatagram(t, client, waitTimeout)
		require.NoError(t, err)
		assert.Equal(t, payload(50, byte(i)), body)
	}
	c := h.session.Counters()
	assert.Equal(t, uint64(n), c.NetToTun)
	assert.Equal(t, uint64(n), c.TunToNet)
}

func TestTruncationAtBufferCapacity(t *testing.T) {
	const capacity = 576
	h := startServer(t, capacity)
	client := openPeer(t)

	exact := payload(capacity, 0x30)
	require.NoError(t, client.Send(exact, h.conn.LocalAddr()))
	assert.Equal(t, exact, h.nextWritten(t))

	over := payload(capacity+1, 0x31)
	require.NoError(t, client.Send(over, h.conn.LocalAddr()))
	got := h.nextWritten(t)
	assert.Len(t, got, capacity)
	assert.True(t, bytes.Equal(over[:capacity], got))

	h.dev.inject(over)
	body, _, err := recvDatagram(t, client, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, over[:capacity], body)

	c := h.session.Counters()
	assert.Equal(t, uint64(2), c.NetToTun)
	assert.Equal(t, uint64(1), c.TunToNet)
}

func TestClientSendsWithoutLearning(t *testing.T) {
	server := openPeer(t)

	cfg := DefaultConfig()
	cfg.Ifname = "tap0"
	cfg.Mode = tun.TAP
	cfg.Role = Client
	cfg.Server = "127.0.0.1"
	cfg.Port = server.LocalAddr().Port

	conn, err := udp.DialUdp(server.LocalAddr(), "")
	require.NoError(t, err)
	h := startSession(t, cfg, conn)
	assert.Equal(t, server.LocalAddr().String(), h.session.Peer().String())

	frame := payload(64, 0x40)
	h.dev.inject(frame)
	body, src, err := recvDatagram(t, server, waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, frame, body)

	reply := payload(64, 0x50)
	require.NoError(t, server.Send(reply, src))
	assert.Equal(t, reply, h.nextWritten(t))
	assert.Equal(t, server.LocalAddr().String(), h.session.Peer().String())
}

func TestInterfaceWriteFailureIsFatal(t *testing.T) {
	h := startServer(t, DefaultBufferSize)
	client := openPeer(t)
	h.dev.failWrites(errors.New("no buffer space"))

	require.NoError(t, client.Send([]byte("boom"), h.conn.LocalAddr()))
	select {
	case err := <-h.done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIO))
		assert.Contains(t, err.Error(), "write to interface")
		h.done <- err
	case <-time.After(waitTimeout):
		t.Fatal("session kept running after a write failure")
	}
}

func TestInterfaceReadFailureIsFatal(t *testing.T) {
	server := openPeer(t)
	cfg := DefaultConfig()
	cfg.Ifname = "tun0"
	cfg.Role = Client
	cfg.Server = "127.0.0.1"
	cfg.Port = server.LocalAddr().Port
	conn, err := udp.DialUdp(server.LocalAddr(), "")
	require.NoError(t, err)
	h := startSession(t, cfg, conn)

	h.dev.failReads(errors.New("device gone"))
	select {
	case err := <-h.done:
		assert.True(t, errors.Is(err, ErrIO))
		assert.Contains(t, err.Error(), "read from interface")
		h.done <- err
	case <-time.After(waitTimeout):
		t.Fatal("session kept running after a read failure")
	}
}

func runWithConn(t *testing.T, cfg Config, conn PacketConn) (*chanDevice, <-chan error) {
	t.Helper()
	dev := newChanDevice(cfg.Ifname)
	s, err := NewSession(cfg, dev, conn)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return dev, done
}

func TestSocketReceiveFailureIsFatal(t *testing.T) {
	conn := newStubConn(nil)
	_, done := runWithConn(t, serverConfig(DefaultBufferSize), conn)

	conn.failRecv(errors.New("connection refused"))
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrIO))
		assert.Contains(t, err.Error(), "receive from network")
	case <-time.After(waitTimeout):
		t.Fatal("session kept running after a receive failure")
	}
}

func TestSocketSendFailureIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ifname = "tun0"
	cfg.Role = Client
	cfg.Server = "127.0.0.1"
	conn := newStubConn(errors.New("network unreachable"))
	dev, done := runWithConn(t, cfg, conn)

	dev.inject(payload(40, 0x60))
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrIO))
		assert.Contains(t, err.Error(), "send to network")
	case <-time.After(waitTimeout):
		t.Fatal("session kept running after a send failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := startServer(t, DefaultBufferSize)
	h.cancel()
	select {
	case err := <-h.done:
		assert.True(t, errors.Is(err, context.Canceled))
		h.done <- err
	case <-time.After(waitTimeout):
		t.Fatal("session did not stop")
	}
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Role = Server
	_, err := NewSession(cfg, newChanDevice(""), nil)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestDescribeOnlyInDebugTun(t *testing.T) {
	frame := []byte{
		0x45, 0x00, 0x00, 0x14, 0x00, 0x01, 0x00, 0x00,
		0x40, 0x11, 0x00, 0x00, 10, 0, 0, 2, 10, 0, 0, 1,
	}
	cfg := serverConfig(DefaultBufferSize)
	s, err := NewSession(cfg, newChanDevice("tun0"), nil)
	require.NoError(t, err)
	assert.Equal(t, "", s.describe(frame))

	cfg.Debug = true
	s, err = NewSession(cfg, newChanDevice("tun0"), nil)
	require.NoError(t, err)
	assert.Equal(t, " [10.0.0.2 -> 10.0.0.1 udp len 20 ttl 64]", s.describe(frame))
	assert.Equal(t, "", s.describe(frame[:10]))

	cfg.Mode = tun.TAP
	s, err = NewSession(cfg, newChanDevice("tap0"), nil)
	require.NoError(t, err)
	assert.Equal(t, "", s.describe(frame))
}
