package tun

import "fmt"

// Device is an open virtual interface. Every Read returns exactly one
// frame; every Write injects one.
type Device interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) error
	Close() error
	Name() string
}

// Mode selects the framing the kernel uses on the device.
type Mode int

const (
	TUN Mode = iota // raw IP packets
	TAP             // raw Ethernet frames
)

func (m Mode) String() string {
	switch m {
	case TUN:
		return "tun"
	case TAP:
		return "tap"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
