package util

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/astaxie/beego/logs"
)

// WaitSignal blocks until the process is told to stop or errc delivers a
// fatal error. It returns the exit code: 0 for a signal, 1 for an error.
func WaitSignal(errc <-chan error, proc func(sig os.Signal)) int {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	select {
	case sig := <-signalChan:
		logs.Warn("recv signal %s", sig.String())
		proc(sig)
		logs.Info("ready to exit")
		return 0
	case err := <-errc:
		if err == nil {
			return 0
		}
		logs.Error("fatal: %s", err.Error())
		return 1
	}
}
