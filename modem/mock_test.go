package modem_test

import (
	"context"
	"testing"

	gomock "go.uber.org/mock/gomock"

	"github.com/i4energy/espuplink/at"
	"github.com/i4energy/espuplink/modem"
)

type MockSequenceBuilder struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Line expects cmd to be written with its CRLF terminator.
func (b *MockSequenceBuilder) Line(cmd string) *MockSequenceBuilder {
	wire := []byte(cmd + at.CRLF)
	b.calls = append(b.calls,
		b.transport.EXPECT().Write(wire).Return(len(wire), nil),
	)
	return b
}

func (b *MockSequenceBuilder) Restore() *MockSequenceBuilder {
	return b.Line(at.CmdRestore)
}

func (b *MockSequenceBuilder) Reset() *MockSequenceBuilder {
	return b.Line(at.CmdReset)
}

func (b *MockSequenceBuilder) StationMode() *MockSequenceBuilder {
	return b.Line(at.CmdStationMode)
}

func (b *MockSequenceBuilder) JoinAP(ssid, password string) *MockSequenceBuilder {
	return b.Line(at.JoinAP(ssid, password))
}

// Reply expects one Read that returns resp.
func (b *MockSequenceBuilder) Reply(resp string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, resp), nil
		}),
	)
	return b
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

// joinMockCalls is the full wifi join with the module accepting it.
func joinMockCalls(transport *modem.MockTransport, ssid, password string) []any {
	return NewMockSequence(transport).
		Restore().
		Reset().
		StationMode().
		JoinAP(ssid, password).
		Reply("WIFI CONNECTED\r\nWIFI GOT IP\r\n\r\nOK\r\n").
		Build()
}

// newTestModem builds a Modem on a TestTransport and a virtual clock.
func newTestModem(t *testing.T, transport *modem.TestTransport, clock *modem.TestClock) *modem.Modem {
	t.Helper()

	if transport.Clock == nil {
		transport.Clock = clock
	}

	config, err := modem.NewConfigBuilder().
		WithDialer(transport).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	m, err := modem.New(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create modem: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// respondOK answers every line with OK.
func respondOK(string) string {
	return "\r\nOK\r\n"
}
