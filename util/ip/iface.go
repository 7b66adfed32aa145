package ip

import (
	"fmt"
	"net"
)

// InterfaceMTU returns the MTU of ifname, failing when the interface is
// missing or reports none.
func InterfaceMTU(ifname string) (int, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return 0, fmt.Errorf("error looking up interface %s: %w", ifname, err)
	}
	if iface.MTU == 0 {
		return 0, fmt.Errorf("failed to determine MTU for %s interface", ifname)
	}
	return iface.MTU, nil
}
