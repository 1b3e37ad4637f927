// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package status

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"not found", fmt.Errorf("open source: %w", ErrNotFound), syscall.ENOENT},
		{"unavailable", fmt.Errorf("open queue: %w", ErrResourceUnavailable), syscall.EBADF},
		{"unsupported", ErrUnsupported, syscall.ENOTSUP},
		{"invalid", ErrInvalidArgument, syscall.EINVAL},
		{"raw errno", fmt.Errorf("send: %w", syscall.EAGAIN), syscall.EAGAIN},
		{"unclassified", errors.New("boom"), syscall.EIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Errno(tt.err))
		})
	}
}

func TestWorst(t *testing.T) {
	notFound := fmt.Errorf("a: %w", ErrNotFound)
	transport := fmt.Errorf("b: %w", ErrTransport)
	unsupported := fmt.Errorf("c: %w", ErrUnsupported)

	require.NoError(t, Worst(nil, nil))
	require.Same(t, notFound, Worst(nil, notFound))
	require.Same(t, notFound, Worst(notFound, nil))
	require.Same(t, transport, Worst(notFound, transport))
	require.Same(t, transport, Worst(transport, notFound))
	require.Same(t, unsupported, Worst(transport, unsupported))

	// ties keep the most recent failure
	second := fmt.Errorf("d: %w", ErrNotFound)
	require.Same(t, second, Worst(notFound, second))
}

func TestLabel(t *testing.T) {
	require.Equal(t, "ok", Label(nil))
	require.Equal(t, "not_found", Label(ErrNotFound))
	require.Equal(t, "unavailable", Label(ErrResourceUnavailable))
	require.Equal(t, "transport", Label(errors.New("x")))
}
