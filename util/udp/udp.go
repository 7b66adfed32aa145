package udp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Conn is the tunnel's datagram socket. A server Conn accepts datagrams from
// any source; a client Conn is associated with one remote address.
type Conn struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// OpenUdp binds bindAddr with SO_REUSEADDR set.
func OpenUdp(bindAddr string) (*Conn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("udp bind %s fail, %w", bindAddr, err)
	}
	return &Conn{conn: pc.(*net.UDPConn)}, nil
}

// DialUdp associates a socket with remote. A non-empty device pins the
// socket's egress to that interface.
func DialUdp(remote *net.UDPAddr, device string) (*Conn, error) {
	d := net.Dialer{}
	if device != "" {
		d.Control = bindDeviceControl(device)
	}
	c, err := d.Dial("udp4", remote.String())
	if err != nil {
		return nil, fmt.Errorf("udp connect %s fail, %w", remote.String(), err)
	}
	return &Conn{conn: c.(*net.UDPConn), remote: remote}, nil
}

// Recv reads one datagram into p. Datagrams longer than p are truncated to
// len(p) without any indication.
func (c *Conn) Recv(p []byte) (int, *net.UDPAddr, error) {
	cnt, srcAddr, err := c.conn.ReadFromUDP(p)
	if err != nil {
		return 0, nil, fmt.Errorf("udp socket read fail, %w", err)
	}
	return cnt, srcAddr, nil
}

// Send transmits body as one datagram. On an associated socket dst is
// ignored and the association is used.
func (c *Conn) Send(body []byte, dstAddr *net.UDPAddr) error {
	var cnt int
	var err error
	if c.remote != nil {
		cnt, err = c.conn.Write(body)
	} else {
		cnt, err = c.conn.WriteToUDP(body, dstAddr)
	}
	if err != nil {
		return fmt.Errorf("udp write fail, %w", err)
	}
	if cnt != len(body) {
		return fmt.Errorf("udp send %d out of %d bytes", cnt, len(body))
	}
	return nil
}

func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

// RemoteAddr is nil for a server socket.
func (c *Conn) RemoteAddr() *net.UDPAddr {
	return c.remote
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
