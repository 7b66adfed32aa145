//go:build linux

package netcfg

import (
	"fmt"
	"net"
	"syscall"

	"github.com/astaxie/beego/logs"
	"github.com/vishvananda/netlink"

	"github.com/easymesh/tunbridge/util/ip"
)

// Prepare configures the device named in o. It is not undone on exit.
func (p *Preparer) Prepare(o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}

	iface, err := netlink.LinkByName(o.Ifname)
	if err != nil {
		return fmt.Errorf("failed to lookup interface %v", o.Ifname)
	}

	if o.MTU > 0 {
		err = netlink.LinkSetMTU(iface, o.MTU)
		if err != nil {
			return fmt.Errorf("failed to set MTU for %v: %v", o.Ifname, err)
		}
	}

	if o.Addr != "" {
		ipn, _ := ip.ParseIP4Net(o.Addr)
		err = netlink.AddrAdd(iface, &netlink.Addr{IPNet: ipn.ToIPNet(), Label: ""})
		if err != nil && err != syscall.EEXIST {
			return fmt.Errorf("failed to add IP address %v to %v: %v", ipn.String(), o.Ifname, err)
		}
	}

	err = netlink.LinkSetUp(iface)
	if err != nil {
		return fmt.Errorf("failed to set interface %v to UP state: %v", o.Ifname, err)
	}
	logs.Info("interface %s up", o.Ifname)

	if o.NATDevice != "" {
		if err = p.EnableNAT(o.Ifname, o.NATDevice); err != nil {
			return err
		}
	}

	if o.Gateway != "" {
		if err = routeThrough(iface, o); err != nil {
			return err
		}
	}
	return nil
}

func routeThrough(iface netlink.Link, o Options) error {
	gw := net.ParseIP(o.Gateway)

	if o.Server != nil {
		routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
		if err != nil {
			return fmt.Errorf("failed to list routes: %v", err)
		}
		if old := defaultRoute(routes); old != nil {
			pin := &netlink.Route{
				LinkIndex: old.LinkIndex,
				Dst:       &net.IPNet{IP: o.Server.To4(), Mask: net.CIDRMask(32, 32)},
				Gw:        old.Gw,
			}
			if err = netlink.RouteReplace(pin); err != nil {
				return fmt.Errorf("failed to pin route to server %v via %v: %v", o.Server, old.Gw, err)
			}
			logs.Info("server %s pinned via %s", o.Server, old.Gw)
		}
	}

	err := netlink.RouteReplace(&netlink.Route{
		LinkIndex: iface.Attrs().Index,
		Scope:     netlink.SCOPE_UNIVERSE,
		Gw:        gw,
	})
	if err != nil {
		return fmt.Errorf("failed to route default via %v dev %v: %v", gw, o.Ifname, err)
	}
	logs.Info("default route via %s dev %s", gw, o.Ifname)
	return nil
}

func defaultRoute(routes []netlink.Route) *netlink.Route {
	for i := range routes {
		if routes[i].Dst == nil && routes[i].Gw != nil {
			return &routes[i]
		}
	}
	return nil
}
