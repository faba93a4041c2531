package modem

import (
	"context"
	"io"
	"sync"
	"time"
)

// TestTransport is a test helper that behaves like a serial port with a
// read timeout: Read never blocks and returns whatever the fake module has
// made available so far.
//
// Responses can be scripted per write through Respond. With a Clock set,
// each response only becomes readable Latency after the write that caused
// it, measured on that clock.
type TestTransport struct {
	// Respond, if set, returns the bytes the module answers to a written
	// line (CRLF included in the argument).
	Respond func(written string) string
	// WriteErr, if set, fails every Write.
	WriteErr error
	Clock    Clock
	Latency  time.Duration

	mu        sync.Mutex
	pending   []pendingData
	writes    []string
	bytesRead int
	reads     int
	closed    bool
}

type pendingData struct {
	data    []byte
	readyAt time.Time
}

// NewTestTransport creates a new test transport for testing.
func NewTestTransport() *TestTransport {
	return &TestTransport{}
}

// Dial lets a TestTransport serve as its own Dialer.
func (t *TestTransport) Dial(ctx context.Context) (Transport, error) {
	return t, nil
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, io.ErrClosedPipe
	}
	if t.WriteErr != nil {
		return 0, t.WriteErr
	}

	written := string(p)
	t.writes = append(t.writes, written)
	if t.Respond != nil {
		if resp := t.Respond(written); resp != "" {
			t.pending = append(t.pending, pendingData{data: []byte(resp), readyAt: t.now().Add(t.Latency)})
		}
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reads++
	if t.closed {
		return 0, io.EOF
	}

	n := 0
	now := t.now()
	for len(t.pending) > 0 && n < len(p) {
		head := &t.pending[0]
		if head.readyAt.After(now) {
			break
		}
		c := copy(p[n:], head.data)
		n += c
		head.data = head.data[c:]
		if len(head.data) == 0 {
			t.pending = t.pending[1:]
		}
	}
	t.bytesRead += n
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// SendData makes data readable immediately, as if the module sent it on
// its own.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.pending = append(t.pending, pendingData{data: []byte(data)})
	}
}

// SendDataAfter makes data readable once d has passed on the transport's
// Clock.
func (t *TestTransport) SendDataAfter(data string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.pending = append(t.pending, pendingData{data: []byte(data), readyAt: t.now().Add(d)})
	}
}

// Writes returns every line written so far, in order.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// BytesRead returns the number of bytes handed out by Read.
func (t *TestTransport) BytesRead() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytesRead
}

// Reads returns the number of Read calls.
func (t *TestTransport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

func (t *TestTransport) now() time.Time {
	if t.Clock == nil {
		return time.Time{}
	}
	return t.Clock.Now()
}

// TestClock is a virtual Clock. Sleep advances time instantly.
type TestClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func NewTestClock() *TestClock {
	return &TestClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
}

// Advance moves time forward without recording a Sleep, as a blocking
// transport read would.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns every duration passed to Sleep, in order.
func (c *TestClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
