//go:build !linux

package tun

import (
	"fmt"
	"runtime"
)

func OpenTun(ifname string, mode Mode) (Device, error) {
	return nil, fmt.Errorf("open %s device %s: unsupported on %s", mode, ifname, runtime.GOOS)
}
