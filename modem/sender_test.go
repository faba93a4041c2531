package modem

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestSend(t *testing.T) {
	t.Run("Terminates the line and settles", func(t *testing.T) {
		clock := NewTestClock()
		transport := NewTestTransport()
		m := newInternalModem(t, transport, clock)

		if got := m.send("AT+CWMODE=1", 100*time.Millisecond); got != Sent {
			t.Errorf("expected Sent, got %v", got)
		}

		if got := transport.Writes(); !slices.Equal(got, []string{"AT+CWMODE=1\r\n"}) {
			t.Errorf("unexpected writes %q", got)
		}
		if got := clock.Sleeps(); !slices.Equal(got, []time.Duration{100 * time.Millisecond}) {
			t.Errorf("expected one 100ms settle, got %v", got)
		}
	})

	t.Run("Zero settle does not sleep", func(t *testing.T) {
		clock := NewTestClock()
		m := newInternalModem(t, NewTestTransport(), clock)

		m.send("AT", 0)
		if got := clock.Sleeps(); len(got) != 0 {
			t.Errorf("expected no sleep, got %v", got)
		}
	})

	t.Run("Write failure is reported and still settles", func(t *testing.T) {
		clock := NewTestClock()
		transport := &TestTransport{WriteErr: errors.New("port gone")}
		m := newInternalModem(t, transport, clock)

		if got := m.send("AT+RST", time.Second); got != TransportError {
			t.Errorf("expected TransportError, got %v", got)
		}
		if got := clock.Sleeps(); !slices.Equal(got, []time.Duration{time.Second}) {
			t.Errorf("expected settle despite failure, got %v", got)
		}
	})
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"AT+RST", "AT+RST"},
		{`AT+CWJAP="net","secret"`, "AT+CWJAP"},
		{"AT+CIPSEND=42", "AT+CIPSEND"},
		{"GET /update?api_key=K&field1=1", "GET"},
		{"AT+CWMODE?", "AT+CWMODE"},
	}

	for _, tt := range tests {
		if got := commandName(tt.cmd); got != tt.want {
			t.Errorf("commandName(%q): expected %q, got %q", tt.cmd, tt.want, got)
		}
	}
}
