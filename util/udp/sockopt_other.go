//go:build !linux

package udp

import (
	"fmt"
	"runtime"
	"syscall"
)

func reuseAddrControl(network, address string, rc syscall.RawConn) error {
	return nil
}

func bindDeviceControl(device string) func(network, address string, rc syscall.RawConn) error {
	return func(network, address string, rc syscall.RawConn) error {
		return fmt.Errorf("bind to device %s: unsupported on %s", device, runtime.GOOS)
	}
}
