//go:build !linux

package main

import (
	"errors"
	"time"
)

func pulseReset(chip string, line int, hold, boot time.Duration) error {
	return errors.New("gpio reset is only supported on linux")
}
