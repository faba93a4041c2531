package modem

import (
	"strings"
	"time"

	"github.com/i4energy/espuplink/at"
)

// SendResult is the outcome of writing one command line.
type SendResult int

const (
	Sent SendResult = iota
	TransportError
)

func (r SendResult) String() string {
	if r == Sent {
		return "sent"
	}
	return "transport error"
}

// send writes cmd terminated by CRLF, then blocks for settle. A failed
// write is logged and reported but the settle delay still applies.
func (m *Modem) send(cmd string, settle time.Duration) SendResult {
	result := Sent
	if _, err := m.transport.Write([]byte(cmd + at.CRLF)); err != nil {
		m.logger.Warn("Failed to write command", "cmd", commandName(cmd), "error", err)
		result = TransportError
	} else {
		m.logger.Debug("tx", "cmd", commandName(cmd), "bytes", len(cmd)+len(at.CRLF))
	}

	if settle > 0 {
		m.clock.Sleep(settle)
	}
	return result
}

// commandName trims arguments off a command line so credentials and API
// keys stay out of the logs.
func commandName(cmd string) string {
	if i := strings.IndexAny(cmd, "=? "); i >= 0 {
		return cmd[:i]
	}
	return cmd
}
