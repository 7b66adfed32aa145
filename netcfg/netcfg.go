// Package netcfg prepares the host around the tunnel device before any
// frame is forwarded: link state, address, MTU, NAT and routes. It runs once
// at startup; the forwarding core only assumes its effects.
package netcfg

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/astaxie/beego/logs"

	"github.com/easymesh/tunbridge/util/ip"
)

const ipForwardPath = "/proc/sys/net/ipv4/ip_forward"

type Options struct {
	Ifname string

	// Addr is assigned to the device when set, e.g. "10.0.0.1/24".
	Addr string
	MTU  int

	// NATDevice enables forwarding and masquerading out of that device.
	NATDevice string

	// Gateway moves the default route into the tunnel. Server keeps a host
	// route to the tunnel server through the previous default gateway.
	Gateway string
	Server  net.IP
}

func (o Options) Validate() error {
	if o.Ifname == "" {
		return fmt.Errorf("missing interface name")
	}
	if o.Addr != "" {
		if _, err := ip.ParseIP4Net(o.Addr); err != nil {
			return fmt.Errorf("bad interface address %s: %w", o.Addr, err)
		}
	}
	if o.MTU < 0 {
		return fmt.Errorf("bad mtu %d", o.MTU)
	}
	if o.Gateway != "" {
		if _, err := ip.ParseIP4(o.Gateway); err != nil {
			return fmt.Errorf("bad gateway %s: %w", o.Gateway, err)
		}
	}
	return nil
}

type Commander interface {
	CombinedOutput(name string, args ...string) ([]byte, error)
}

type execCommander struct{}

func (execCommander) CombinedOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

type Preparer struct {
	commander     Commander
	ipForwardPath string
}

func NewPreparer() *Preparer {
	return &Preparer{commander: execCommander{}, ipForwardPath: ipForwardPath}
}

// EnableNAT turns on IPv4 forwarding and masquerades tunnel traffic
// leaving through outDev.
func (p *Preparer) EnableNAT(tunName, outDev string) error {
	if _, err := ip.InterfaceMTU(outDev); err != nil {
		return err
	}
	if err := os.WriteFile(p.ipForwardPath, []byte("1\n"), 0644); err != nil {
		return fmt.Errorf("enable ip forwarding: %w", err)
	}
	for _, args := range natRules(tunName, outDev) {
		output, err := p.commander.CombinedOutput("iptables", args...)
		if err != nil {
			return fmt.Errorf("iptables %s: %v, output: %s",
				strings.Join(args, " "), err, output)
		}
	}
	logs.Info("nat enabled %s -> %s", tunName, outDev)
	return nil
}

func natRules(tunName, outDev string) [][]string {
	return [][]string{
		{"-t", "nat", "-A", "POSTROUTING", "-o", outDev, "-j", "MASQUERADE"},
		{"-A", "FORWARD", "-i", tunName, "-j", "ACCEPT"},
		{"-A", "FORWARD", "-i", outDev, "-o", tunName, "-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT"},
	}
}
