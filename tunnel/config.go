package tunnel

import (
	"fmt"
	"net"
	"strconv"

	"github.com/easymesh/tunbridge/util/tun"
)

const (
	DefaultPort       = 55555
	DefaultBufferSize = 2000

	// MinBufferSize is the smallest MTU an IPv4 link may have.
	MinBufferSize = 68
	MaxBufferSize = 65535

	ifnameSize = 16
)

type Role int

const (
	RoleUnset Role = iota
	Client
	Server
)

func (r Role) String() string {
	switch r {
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return "unset"
	}
}

// Config is built once at startup and handed to the Session.
type Config struct {
	Ifname string
	Mode   tun.Mode
	Role   Role

	// Server is the remote address in client role, host or IP.
	Server string
	Port   int

	// BufferSize bounds every frame and datagram; longer ones are truncated.
	BufferSize int
	Debug      bool
}

func DefaultConfig() Config {
	return Config{
		Mode:       tun.TUN,
		Port:       DefaultPort,
		BufferSize: DefaultBufferSize,
	}
}

func (c *Config) Validate() error {
	if c.Ifname == "" {
		return ConfigError("must specify interface name")
	}
	if len(c.Ifname) >= ifnameSize {
		return ConfigError("interface name %q longer than %d bytes", c.Ifname, ifnameSize-1)
	}
	switch c.Role {
	case Client:
		if c.Server == "" {
			return ConfigError("must specify server address")
		}
	case Server:
		if c.Server != "" {
			return ConfigError("server mode takes no server address")
		}
	default:
		return ConfigError("must specify client or server mode")
	}
	if c.Mode != tun.TUN && c.Mode != tun.TAP {
		return ConfigError("unknown device mode %d", int(c.Mode))
	}
	if c.Port < 1 || c.Port > 65535 {
		return ConfigError("port %d out of range", c.Port)
	}
	if c.BufferSize < MinBufferSize || c.BufferSize > MaxBufferSize {
		return ConfigError("buffer size %d not within %d..%d", c.BufferSize, MinBufferSize, MaxBufferSize)
	}
	return nil
}

// CheckMTU rejects a buffer that cannot hold a full frame of the interface.
func (c *Config) CheckMTU(mtu int) error {
	if c.Mode == tun.TAP {
		// Ethernet header on top of the L3 MTU.
		mtu += 14
	}
	if c.BufferSize < mtu {
		return ConfigError("buffer size %d smaller than interface %s frame size %d", c.BufferSize, c.Ifname, mtu)
	}
	return nil
}

// BindAddr is the local address a server listens on.
func (c *Config) BindAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ServerAddr resolves the client role's remote endpoint.
func (c *Config) ServerAddr() (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(c.Server, strconv.Itoa(c.Port)))
	if err != nil {
		return nil, ConfigError("resolve server address %s: %s", c.Server, err.Error())
	}
	return addr, nil
}
