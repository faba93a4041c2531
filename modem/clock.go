package modem

import "time"

// Clock supplies monotonic time and blocking sleeps. Settle delays, flow
// pauses and wait deadlines all go through it so tests can run on virtual
// time.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock. time.Now carries a monotonic reading, so
// differences between two Now values are immune to clock steps.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
