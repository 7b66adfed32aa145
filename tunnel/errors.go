package tunnel

import (
	"errors"
	"fmt"
)

// Every failure the tunnel reports wraps exactly one of these kinds. All of
// them are fatal: nothing is retried.
var (
	ErrConfig = errors.New("configuration error")
	ErrDevice = errors.New("device error")
	ErrSocket = errors.New("socket error")
	ErrIO     = errors.New("i/o error")
)

func wrap(kind error, op string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}

// ConfigError builds an ErrConfig from a message.
func ConfigError(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, v...))
}

func DeviceError(op string, err error) error { return wrap(ErrDevice, op, err) }

func SocketError(op string, err error) error { return wrap(ErrSocket, op, err) }

func IOError(op string, err error) error { return wrap(ErrIO, op, err) }
