package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/astaxie/beego/logs"

	"github.com/easymesh/tunbridge/netcfg"
	"github.com/easymesh/tunbridge/tunnel"
	"github.com/easymesh/tunbridge/util"
	"github.com/easymesh/tunbridge/util/ip"
	"github.com/easymesh/tunbridge/util/tun"
	"github.com/easymesh/tunbridge/util/udp"
)

const stopTimeout = 2 * time.Second

func openDevice(o *options) (tun.Device, error) {
	dev, err := tun.OpenTun(o.cfg.Ifname, o.cfg.Mode)
	if err != nil {
		return nil, tunnel.DeviceError("open", err)
	}
	logs.Info("successfully connected to interface %s", dev.Name())

	o.net.Ifname = dev.Name()
	if err = netcfg.NewPreparer().Prepare(o.net); err != nil {
		dev.Close()
		return nil, tunnel.DeviceError("configure", err)
	}

	mtu, err := ip.InterfaceMTU(dev.Name())
	if err != nil {
		dev.Close()
		return nil, tunnel.DeviceError("lookup", err)
	}
	logs.Info("interface %s MTU: %d", dev.Name(), mtu)
	if err = o.cfg.CheckMTU(mtu); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}

func openSocket(o *options) (*udp.Conn, error) {
	if o.cfg.Role == tunnel.Server {
		conn, err := udp.OpenUdp(o.cfg.BindAddr())
		if err != nil {
			return nil, tunnel.SocketError("bind", err)
		}
		logs.Info("SERVER: listening on %s", conn.LocalAddr().String())
		return conn, nil
	}

	remote, err := o.cfg.ServerAddr()
	if err != nil {
		return nil, err
	}
	conn, err := udp.DialUdp(remote, o.bind)
	if err != nil {
		return nil, tunnel.SocketError("connect", err)
	}
	logs.Info("CLIENT: connected to server %s", conn.RemoteAddr().String())
	return conn, nil
}

func run(progname string, args []string) int {
	fs := newFlagSet(progname)
	o, err := parseFlags(fs, args)
	if err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		}
		usage(os.Stderr, fs)
		return 1
	}

	if err = util.LogInit(o.logDir, o.cfg.Debug, "tunbridge.log"); err != nil {
		fmt.Fprintf(os.Stderr, "log init: %s\n", err.Error())
		return 1
	}
	defer util.LogFlush()
	logs.Info("version: %s, %s mode %s on %s port %d",
		util.VersionGet(), o.cfg.Role, o.cfg.Mode, o.cfg.Ifname, o.cfg.Port)

	dev, err := openDevice(o)
	if err != nil {
		logs.Error(err.Error())
		return 1
	}

	conn, err := openSocket(o)
	if err != nil {
		dev.Close()
		logs.Error(err.Error())
		return 1
	}

	session, err := tunnel.NewSession(o.cfg, dev, conn)
	if err != nil {
		dev.Close()
		conn.Close()
		logs.Error(err.Error())
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- session.Run(ctx)
	}()

	signalled := false
	code := util.WaitSignal(errc, func(os.Signal) {
		signalled = true
		cancel()
	})
	if signalled {
		select {
		case <-errc:
		case <-time.After(stopTimeout):
			logs.Warn("session did not stop within %s", stopTimeout)
		}
	}
	return code
}

func main() {
	os.Exit(run(os.Args[0], os.Args[1:]))
}
