package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"

	"github.com/easymesh/tunbridge/netcfg"
	"github.com/easymesh/tunbridge/tunnel"
	"github.com/easymesh/tunbridge/util/tun"
)

type options struct {
	cfg    tunnel.Config
	net    netcfg.Options
	bind   string
	logDir string
}

var errHelp = errors.New("help requested")

func newFlagSet(progname string) *flag.FlagSet {
	fs := flag.NewFlagSet(progname, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "%s -i <ifacename> [-s|-c <serverIP>] [-p <port>] [-u|-a] [-d]\n", fs.Name())
	fmt.Fprintf(w, "%s -h\n\n", fs.Name())
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}

// parseFlags turns the command line into a validated configuration. Every
// error it returns other than errHelp wraps tunnel.ErrConfig.
func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{cfg: tunnel.DefaultConfig()}

	var server, help, tunFlag, tapFlag bool
	fs.StringVar(&o.cfg.Ifname, "i", "", "name of interface to use (mandatory)")
	fs.BoolVar(&server, "s", false, "run in server mode")
	fs.StringVar(&o.cfg.Server, "c", "", "run in client mode and connect to `serverIP`")
	fs.IntVar(&o.cfg.Port, "p", tunnel.DefaultPort, "port to listen on (server) or to connect to (client)")
	fs.BoolVar(&tunFlag, "u", false, "use TUN (default)")
	fs.BoolVar(&tapFlag, "a", false, "use TAP")
	fs.BoolVar(&o.cfg.Debug, "d", false, "outputs debug information while running")
	fs.BoolVar(&help, "h", false, "prints this help text")
	fs.IntVar(&o.cfg.BufferSize, "b", tunnel.DefaultBufferSize, "frame buffer size in bytes, at least the interface MTU")

	fs.StringVar(&o.net.Addr, "addr", "", "`cidr` to assign to the interface, e.g. 10.0.0.1/24")
	fs.IntVar(&o.net.MTU, "mtu", 0, "interface MTU, kernel default when 0")
	fs.StringVar(&o.net.NATDevice, "nat", "", "server: masquerade tunnel traffic out of `device`")
	fs.StringVar(&o.net.Gateway, "gw", "", "client: route default traffic via this tunnel `gateway`")
	fs.StringVar(&o.bind, "bind", "", "client: bind the socket to egress `device`")
	fs.StringVar(&o.logDir, "log", "./", "log dir, used without -d")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errHelp
		}
		return nil, tunnel.ConfigError("%s", err.Error())
	}
	if help {
		return nil, errHelp
	}
	if fs.NArg() > 0 {
		return nil, tunnel.ConfigError("too many options: %v", fs.Args())
	}

	if server && o.cfg.Server != "" {
		return nil, tunnel.ConfigError("-s and -c are mutually exclusive")
	}
	if tunFlag && tapFlag {
		return nil, tunnel.ConfigError("-u and -a are mutually exclusive")
	}
	switch {
	case server:
		o.cfg.Role = tunnel.Server
	case o.cfg.Server != "":
		o.cfg.Role = tunnel.Client
	}
	if tapFlag {
		o.cfg.Mode = tun.TAP
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	o.net.Ifname = o.cfg.Ifname
	if err := o.net.Validate(); err != nil {
		return nil, tunnel.ConfigError("%s", err.Error())
	}
	if o.net.MTU > 0 {
		if err := o.cfg.CheckMTU(o.net.MTU); err != nil {
			return nil, err
		}
	}
	if o.cfg.Role == tunnel.Server && (o.net.Gateway != "" || o.bind != "") {
		return nil, tunnel.ConfigError("-gw and -bind are client options")
	}
	if o.cfg.Role == tunnel.Client && o.net.NATDevice != "" {
		return nil, tunnel.ConfigError("-nat is a server option")
	}
	if o.cfg.Role == tunnel.Client && o.net.Gateway != "" {
		addr, err := o.cfg.ServerAddr()
		if err != nil {
			return nil, err
		}
		o.net.Server = append(net.IP(nil), addr.IP...)
	}
	return o, nil
}
