// Package buffer provides a growable byte buffer with a size cap and an
// error sink. Canonicalization staging and header assembly use it so that
// oversized input turns into a reported failure instead of unbounded growth.
package buffer

import (
	"errors"
	"fmt"
	"strings"
)

const minAlloc = 1024

// ErrTooLarge is reported when a write would grow the buffer past its cap.
var ErrTooLarge = errors.New("maximum buffer size exceeded")

// Sink receives a formatted diagnostic when an operation fails.
type Sink func(format string, args ...interface{})

// Buffer is a growable byte buffer. Capacity doubles as needed up to the
// cap; a write that would exceed the cap fails without partial effect.
type Buffer struct {
	buf  []byte
	max  int
	sink Sink
}

// New returns a buffer with the given initial capacity and cap.
// max <= 0 means unbounded. The sink may be nil.
func New(initial, max int, sink Sink) *Buffer {
	if initial < minAlloc {
		initial = minAlloc
	}
	if max > 0 && initial > max {
		initial = max
	}
	return &Buffer{buf: make([]byte, 0, initial), max: max, sink: sink}
}

func (b *Buffer) fail(need int) error {
	if b.sink != nil {
		b.sink("maximum buffer size exceeded (%d byte request, %d byte cap)", need, b.max)
	}
	return ErrTooLarge
}

// grow makes room for n more bytes, doubling capacity up to the cap.
func (b *Buffer) grow(n int) error {
	need := len(b.buf) + n
	if b.max > 0 && need > b.max {
		return b.fail(need)
	}
	if need <= cap(b.buf) {
		return nil
	}
	newcap := cap(b.buf) * 2
	if newcap < minAlloc {
		newcap = minAlloc
	}
	for newcap < need {
		newcap *= 2
	}
	if b.max > 0 && newcap > b.max {
		newcap = b.max
	}
	nb := make([]byte, len(b.buf), newcap)
	copy(nb, b.buf)
	b.buf = nb
	return nil
}

// Write appends p to the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.grow(len(p)); err != nil {
		return 0, err
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	if err := b.grow(len(s)); err != nil {
		return 0, err
	}
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	if err := b.grow(1); err != nil {
		return err
	}
	b.buf = append(b.buf, c)
	return nil
}

// Printf appends formatted text.
func (b *Buffer) Printf(format string, args ...interface{}) error {
	_, err := b.WriteString(fmt.Sprintf(format, args...))
	return err
}

// Copy replaces the contents with p.
func (b *Buffer) Copy(p []byte) error {
	b.buf = b.buf[:0]
	_, err := b.Write(p)
	return err
}

// Len reports the number of bytes held.
func (b *Buffer) Len() int { return len(b.buf) }

// Bytes returns the contents; the slice is valid until the next mutation.
func (b *Buffer) Bytes() []byte { return b.buf }

// String returns the contents as a string.
func (b *Buffer) String() string { return string(b.buf) }

// Blank truncates the buffer without releasing its capacity.
func (b *Buffer) Blank() { b.buf = b.buf[:0] }

// Strip removes every byte contained in cutset.
func (b *Buffer) Strip(cutset string) {
	out := b.buf[:0]
	for _, c := range b.buf {
		if strings.IndexByte(cutset, c) < 0 {
			out = append(out, c)
		}
	}
	b.buf = out
}
