// pkg/page/span.go
package page

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a read would leave the span.
var ErrOutOfBounds = errors.New("read out of bounds")

// Span is a read-only, length-checked view over a page buffer.
// Every accessor validates its range and returns ErrOutOfBounds instead of
// reading past the end, so a corrupted offset can never panic.
type Span struct {
	data []byte
}

// NewSpan wraps data without copying it.
func NewSpan(data []byte) Span {
	return Span{data: data}
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return len(s.data)
}

// Contains reports whether [off, off+n) lies within the span.
func (s Span) Contains(off, n int) bool {
	return off >= 0 && n >= 0 && off <= len(s.data) && n <= len(s.data)-off
}

func (s Span) check(off, n int) error {
	if !s.Contains(off, n) {
		return fmt.Errorf("%w: offset %d length %d (span %d)", ErrOutOfBounds, off, n, len(s.data))
	}
	return nil
}

// Uint8 reads one byte at off.
func (s Span) Uint8(off int) (uint8, error) {
	if err := s.check(off, 1); err != nil {
		return 0, err
	}
	return s.data[off], nil
}

// Uint16 reads a little-endian uint16 at off.
func (s Span) Uint16(off int) (uint16, error) {
	if err := s.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s.data[off:]), nil
}

// Uint32 reads a little-endian uint32 at off.
func (s Span) Uint32(off int) (uint32, error) {
	if err := s.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s.data[off:]), nil
}

// Int32 reads a little-endian int32 at off.
func (s Span) Int32(off int) (int32, error) {
	v, err := s.Uint32(off)
	return int32(v), err
}

// Bytes returns the n bytes at off. The result aliases the page buffer.
func (s Span) Bytes(off, n int) ([]byte, error) {
	if err := s.check(off, n); err != nil {
		return nil, err
	}
	return s.data[off : off+n : off+n], nil
}

// IndexByte returns the position of the first c in [off, off+limit),
// relative to off, or -1. The window is clipped to the span.
func (s Span) IndexByte(off, limit int, c byte) int {
	if off < 0 || off >= len(s.data) || limit <= 0 {
		return -1
	}
	end := off + limit
	if end > len(s.data) || end < off {
		end = len(s.data)
	}
	return bytes.IndexByte(s.data[off:end], c)
}
