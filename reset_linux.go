//go:build linux

package main

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// pulseReset holds the module's RST line low for hold, releases it and
// gives the firmware boot time before the serial port is opened.
func pulseReset(chip string, line int, hold, boot time.Duration) error {
	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("request reset line %s:%d: %w", chip, line, err)
	}
	defer l.Close()

	time.Sleep(hold)

	if err := l.SetValue(1); err != nil {
		return fmt.Errorf("release reset line %s:%d: %w", chip, line, err)
	}

	time.Sleep(boot)
	return nil
}
