package tunnel

import (
	"errors"
	"net"
	"sync"
)

var errDeviceClosed = errors.New("device closed")

// chanDevice is an in-memory tun.Device. Frames pushed with inject are
// returned by Read; frames passed to Write appear on written.
type chanDevice struct {
	name    string
	inbound chan []byte
	written chan []byte

	once   sync.Once
	closed chan struct{}

	mu       sync.Mutex
	readErr  error
	writeErr error
}

func newChanDevice(name string) *chanDevice {
	return &chanDevice{
		name:    name,
		inbound: make(chan []byte, 16),
		written: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (d *chanDevice) inject(frame []byte) {
	d.inbound <- append([]byte(nil), frame...)
}

func (d *chanDevice) failReads(err error) {
	d.mu.Lock()
	d.readErr = err
	d.mu.Unlock()
	d.inbound <- nil
}

func (d *chanDevice) failWrites(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

func (d *chanDevice) Read(p []byte) (int, error) {
	select {
	case frame := <-d.inbound:
		d.mu.Lock()
		err := d.readErr
		d.mu.Unlock()
		if err != nil {
			return 0, err
		}
		return copy(p, frame), nil
	case <-d.closed:
		return 0, errDeviceClosed
	}
}

func (d *chanDevice) Write(p []byte) error {
	d.mu.Lock()
	err := d.writeErr
	d.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case d.written <- append([]byte(nil), p...):
		return nil
	case <-d.closed:
		return errDeviceClosed
	}
}

func (d *chanDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *chanDevice) Name() string { return d.name }

// stubConn is a PacketConn whose Recv blocks until failRecv or Close, and
// whose Send always returns sendErr.
type stubConn struct {
	recvErr chan error
	sendErr error

	once   sync.Once
	closed chan struct{}
}

func newStubConn(sendErr error) *stubConn {
	return &stubConn{recvErr: make(chan error, 1), sendErr: sendErr, closed: make(chan struct{})}
}

func (c *stubConn) failRecv(err error) {
	c.recvErr <- err
}

func (c *stubConn) Recv(p []byte) (int, *net.UDPAddr, error) {
	select {
	case err := <-c.recvErr:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *stubConn) Send(body []byte, dst *net.UDPAddr) error {
	return c.sendErr
}

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
