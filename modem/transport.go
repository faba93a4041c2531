package modem

import (
	"context"
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

//go:generate go tool mockgen -destination=mock_modem.go -package=modem . Transport,Dialer

// DefaultReadTimeout bounds how long a single Read on a serial Transport
// blocks when the module has nothing to say.
const DefaultReadTimeout = 10 * time.Millisecond

// Transport represents an established, bidirectional byte stream to an
// ESP8266 module.
//
// Read must not block for long: it returns whatever bytes are currently
// buffered, or zero bytes once a short read timeout expires. The response
// waiter polls it in a loop. Serial ports opened by the dialers in this
// package are configured that way.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to an ESP8266 module.
//
// Dialer abstracts how the connection is created (serial port, test double)
// and is used during modem construction only.
type Dialer interface {
	// Dial creates and returns a connected Transport. It should respect
	// cancellation of ctx while it is still possible to give up.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens the module over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil. Defaults to 115200.
	BaudRate int
	// Mode overrides the line settings entirely when set.
	Mode *serial.Mode
	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Dial opens the serial port and sets its read timeout.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if err := checkDial(ctx, d.PortName); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: baudOrDefault(d.BaudRate),
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}

	if err := port.SetReadTimeout(readTimeoutOrDefault(d.ReadTimeout)); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %q: %w", d.PortName, err)
	}

	return port, nil
}

// TarmDialer opens the module over a serial port using github.com/tarm/serial.
// It is an alternative for platforms where go.bug.st/serial misbehaves.
//
// tarm counts read timeouts in tenths of a second, so anything below 100ms
// becomes 100ms and an idle Read returns io.EOF after that long. Response
// waits then poll every 100ms and can end up to one read past their
// timeout.
type TarmDialer struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
}

// Dial opens the serial port with a read timeout so reads never block.
func (d TarmDialer) Dial(ctx context.Context) (Transport, error) {
	if err := checkDial(ctx, d.PortName); err != nil {
		return nil, err
	}

	port, err := tarm.OpenPort(&tarm.Config{
		Name:        d.PortName,
		Baud:        baudOrDefault(d.BaudRate),
		ReadTimeout: readTimeoutOrDefault(d.ReadTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}
	return port, nil
}

func checkDial(ctx context.Context, portName string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if portName == "" {
		return ErrPortNameRequired
	}
	return ctx.Err()
}

func baudOrDefault(baud int) int {
	if baud <= 0 {
		return 115200
	}
	return baud
}

func readTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultReadTimeout
	}
	return d
}
