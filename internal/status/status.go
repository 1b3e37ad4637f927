// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status defines the error taxonomy shared by the trigger, render and
// delivery components, and maps it onto the errno codes used in diagnostics.
package status

import (
	"errors"
	"syscall"
)

var (
	// ErrInvalidArgument is returned for nil or malformed internal calls.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a trigger name does not resolve or a
	// template source / destination path is unusable.
	ErrNotFound = errors.New("not found")

	// ErrResourceUnavailable is returned when a destination or queue could not be opened.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrTransport is returned when an underlying send or write failed.
	ErrTransport = errors.New("transport failure")

	// ErrUnsupported is returned for an unrecognized delivery kind.
	ErrUnsupported = errors.New("unsupported")
)

// Errno maps err onto the errno the service reports in its diagnostics.
// A nil error maps to 0 (EOK).
func Errno(err error) syscall.Errno {
	var errno syscall.Errno
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidArgument):
		return syscall.EINVAL
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrResourceUnavailable):
		return syscall.EBADF
	case errors.Is(err, ErrUnsupported):
		return syscall.ENOTSUP
	case errors.As(err, &errno):
		return errno
	default:
		return syscall.EIO
	}
}

func rank(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUnsupported):
		return 5
	case errors.Is(err, ErrTransport):
		return 4
	case errors.Is(err, ErrResourceUnavailable):
		return 3
	case errors.Is(err, ErrNotFound):
		return 2
	case errors.Is(err, ErrInvalidArgument):
		return 1
	default:
		// unclassified failures come from the transport or the filesystem
		return 4
	}
}

// Worst returns the more severe of a and b. On a tie the most recent (b) wins,
// so folding a scan with Worst keeps the last failure of the worst class.
func Worst(a, b error) error {
	if rank(b) >= rank(a) && b != nil {
		return b
	}
	return a
}

// Label returns a short metrics/log label for err.
func Label(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrResourceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return "transport"
	}
}
