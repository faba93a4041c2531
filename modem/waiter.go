package modem

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/i4energy/espuplink/at"
)

// WaitResult is the outcome of waiting for a response.
type WaitResult int

const (
	Matched WaitResult = iota
	TimedOut
)

func (r WaitResult) String() string {
	if r == Matched {
		return "matched"
	}
	return "timed out"
}

// waitFor polls the transport, appending everything read to the rolling
// buffer, until the buffer contains target or waitTimeout has elapsed.
//
// The buffer is never cleared, so a target left over from an earlier
// exchange matches on the first poll without any new bytes. Empty reads
// are followed by a pollInterval sleep unless the read itself blocked that
// long, so a slow transport read timeout does not stack on top of it. Module
// rejections, a missing module and a slow network all end as TimedOut.
// Cancelling ctx ends the wait early, also as TimedOut.
func (m *Modem) waitFor(ctx context.Context, target string) WaitResult {
	start := m.clock.Now()
	var readErr error

	for {
		readStart := m.clock.Now()
		n, err := m.transport.Read(m.chunk)
		readTime := m.clock.Now().Sub(readStart)
		if n > 0 {
			m.buf.Write(m.chunk[:n])
		}
		if err != nil && !errors.Is(err, io.EOF) && readErr == nil {
			readErr = err
			m.logger.Debug("Read from module failed", "error", err)
		}

		if m.buf.Contains(target) {
			m.logResult(Matched, target, start)
			return Matched
		}

		if m.clock.Now().Sub(start) > m.waitTimeout || ctx.Err() != nil {
			m.logResult(TimedOut, target, start)
			return TimedOut
		}

		// a read that blocked on its own timeout already paced the loop
		if n == 0 && readTime < m.pollInterval {
			m.clock.Sleep(m.pollInterval)
		}
	}
}

func (m *Modem) logResult(result WaitResult, target string, start time.Time) {
	elapsed := m.clock.Now().Sub(start)
	if result == Matched {
		m.logger.Debug("Response matched", "target", target, "elapsed", elapsed)
		return
	}

	// echoed commands can carry credentials, so data lines are cut down
	last, lastType := "", at.TypeData
	if lines := at.Lines(m.buf.Bytes()); len(lines) > 0 {
		last = lines[len(lines)-1]
		if lastType = at.Classify(last); lastType == at.TypeData {
			last = commandName(last)
		}
	}
	m.logger.Warn("Response wait timed out",
		"target", target,
		"elapsed", elapsed,
		"last_line", last,
		"last_line_type", lastType.String())
}
