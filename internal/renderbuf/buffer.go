// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package renderbuf provides the fixed-size, named render buffer that queue
// delivery materializes a document into before sending it as one message.
package renderbuf

import (
	"errors"
	"fmt"
	"io"

	"github.com/ManuGH/templatesvc/internal/status"
)

// DefaultSize is the render buffer size used when none is configured.
const DefaultSize = 256 * 1024

var (
	// ErrOverflow is returned when a rendered document does not fit.
	ErrOverflow = fmt.Errorf("render buffer overflow: %w", status.ErrResourceUnavailable)

	// ErrClosed is returned by operations on a released buffer.
	ErrClosed = fmt.Errorf("render buffer closed: %w", status.ErrNotFound)
)

// Buffer is a bounded, seekable sink. Writes never grow it past the size it
// was created with. It is not safe for concurrent use; the dispatch loop is
// its only user.
type Buffer struct {
	name      string
	buf       []byte
	off       int // write cursor
	end       int // length of the materialized document
	highWater int
	closed    bool
}

// Create allocates a render buffer of size bytes.
func Create(name string, size int) (*Buffer, error) {
	if name == "" || size <= 0 {
		return nil, fmt.Errorf("create render buffer %q size %d: %w", name, size, status.ErrInvalidArgument)
	}
	return &Buffer{name: name, buf: make([]byte, size)}, nil
}

func (b *Buffer) Name() string { return b.name }

// Size returns the capacity in bytes.
func (b *Buffer) Size() int { return len(b.buf) }

// Len returns the length of the current document.
func (b *Buffer) Len() int { return b.end }

// HighWater returns the largest document length seen since creation.
func (b *Buffer) HighWater() int { return b.highWater }

// Reset moves the cursor to the start and discards the current document.
func (b *Buffer) Reset() {
	b.off = 0
	b.end = 0
}

// Write copies p at the cursor. If p does not fit, the part that fits is
// written and ErrOverflow is returned.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	n := copy(b.buf[b.off:], p)
	b.off += n
	if b.off > b.end {
		b.end = b.off
		if b.end > b.highWater {
			b.highWater = b.end
		}
	}
	if n < len(p) {
		return n, ErrOverflow
	}
	return n, nil
}

// Seek positions the write cursor. Offsets outside [0, Size] are rejected.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.off)
	case io.SeekEnd:
		base = int64(b.end)
	default:
		return 0, errors.New("renderbuf: invalid whence")
	}
	pos := base + offset
	if pos < 0 || pos > int64(len(b.buf)) {
		return 0, fmt.Errorf("renderbuf: seek to %d: %w", pos, status.ErrInvalidArgument)
	}
	b.off = int(pos)
	return pos, nil
}

// Data returns the current document. The slice aliases the buffer and is
// only valid until the next Write or Reset.
func (b *Buffer) Data() ([]byte, error) {
	if b.closed {
		return nil, ErrClosed
	}
	return b.buf[:b.end], nil
}

// Close releases the buffer memory.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.buf = nil
	b.off, b.end = 0, 0
	return nil
}

var _ io.WriteSeeker = (*Buffer)(nil)
