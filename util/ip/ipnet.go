package ip

import (
	"fmt"
	"net"
)

// similar to net.IPNet but has uint based representation
type IP4Net struct {
	IP        IP4
	PrefixLen uint
}

// ParseIP4Net parses "a.b.c.d/n" keeping the host part of the address.
func ParseIP4Net(cidr string) (*IP4Net, error) {
	addr, ipn, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if addr.To4() == nil {
		return nil, fmt.Errorf("%s is not an IPv4 prefix", cidr)
	}
	prefixLen, _ := ipn.Mask.Size()
	return &IP4Net{IP: FromIP(addr), PrefixLen: uint(prefixLen)}, nil
}

func (n IP4Net) String() string {
	return fmt.Sprintf("%s/%d", n.IP.String(), n.PrefixLen)
}

func (n IP4Net) ToIPNet() *net.IPNet {
	return &net.IPNet{
		IP:   n.IP.ToIP(),
		Mask: net.CIDRMask(int(n.PrefixLen), 32),
	}
}

func (n IP4Net) Mask() uint32 {
	if n.PrefixLen == 0 {
		return 0
	}
	var ones uint32 = 0xFFFFFFFF
	return ones << (32 - n.PrefixLen)
}
