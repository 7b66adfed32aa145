//go:build linux

package tun

import (
	"fmt"

	"github.com/songgao/water"
)

type tunLinux struct {
	iface *water.Interface
}

// Write reports an error only when the kernel rejects the frame; a short
// write is not retried.
func (tun *tunLinux) Write(p []byte) error {
	if _, err := tun.iface.Write(p); err != nil {
		return fmt.Errorf("tun write fail, %s", err.Error())
	}
	return nil
}

func (tun *tunLinux) Read(p []byte) (int, error) {
	cnt, err := tun.iface.Read(p)
	if err != nil {
		return cnt, fmt.Errorf("tun read fail, %s", err.Error())
	}
	return cnt, nil
}

func (tun *tunLinux) Close() error {
	return tun.iface.Close()
}

func (tun *tunLinux) Name() string {
	return tun.iface.Name()
}

// OpenTun attaches to (or creates) the persistent device ifname. The
// packet-info header is never requested.
func OpenTun(ifname string, mode Mode) (Device, error) {
	cfg := water.Config{DeviceType: water.TUN}
	if mode == TAP {
		cfg.DeviceType = water.TAP
	}
	cfg.Name = ifname
	cfg.Persist = true

	iface, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s device %s: %w", mode, ifname, err)
	}
	return &tunLinux{iface: iface}, nil
}
