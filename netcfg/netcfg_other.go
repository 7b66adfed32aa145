//go:build !linux

package netcfg

import (
	"fmt"
	"runtime"
)

func (p *Preparer) Prepare(o Options) error {
	return fmt.Errorf("interface setup unsupported on %s", runtime.GOOS)
}
