package at

import (
	"bytes"
	"io"
)

// DefaultBufferSize is the number of trailing bytes a RollingBuffer keeps.
const DefaultBufferSize = 200

// RollingBuffer accumulates module output and keeps only the most recent
// bytes. Contents are never cleared, so text matched by one wait stays
// visible to the next.
//
// A RollingBuffer is not safe for concurrent use.
type RollingBuffer struct {
	data []byte
	size int
}

// NewRollingBuffer returns a buffer retaining at most size bytes. A size
// below 1 selects DefaultBufferSize.
func NewRollingBuffer(size int) *RollingBuffer {
	if size < 1 {
		size = DefaultBufferSize
	}
	return &RollingBuffer{
		data: make([]byte, 0, size*2),
		size: size,
	}
}

// Write appends p and drops bytes from the front until at most Cap bytes
// remain. It never fails.
func (b *RollingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if over := len(b.data) - b.size; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
	return len(p), nil
}

var _ io.Writer = (*RollingBuffer)(nil)

// Contains reports whether target occurs in the retained bytes.
func (b *RollingBuffer) Contains(target string) bool {
	return bytes.Contains(b.data, []byte(target))
}

func (b *RollingBuffer) Bytes() []byte { return b.data }

func (b *RollingBuffer) String() string { return string(b.data) }

func (b *RollingBuffer) Len() int { return len(b.data) }

func (b *RollingBuffer) Cap() int { return b.size }
