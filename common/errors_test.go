// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "config",
			err:  fmt.Errorf("validate: %w", &ConfigError{Field: "ttl", Reason: "must be between 1 and 255"}),
			want: ErrCodeInvalidConfig,
		},
		{
			name: "dns",
			err:  &DNSError{Host: "nope.invalid", Err: errors.New("no such host")},
			want: ErrCodeDNS,
		},
		{
			name: "permission denied on socket creation",
			err:  &SocketError{Op: "socket", Err: syscall.EPERM},
			want: ErrCodeDenied,
		},
		{
			name: "send failure",
			err:  &SocketError{Op: "send", Err: syscall.ENETUNREACH},
			want: ErrCodeSocket,
		},
		{
			name: "canceled",
			err:  context.Canceled,
			want: ErrCodeTimeout,
		},
		{
			name: "read deadline",
			err:  &ReceiveProbeNoPktError{Err: os.ErrDeadlineExceeded},
			want: ErrCodeTimeout,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.err.Error(), got.Message)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(&ReceiveProbeNoPktError{Err: errors.New("x")}))
	assert.True(t, IsTimeout(fmt.Errorf("read: %w", os.ErrDeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("x")))
	assert.False(t, IsTimeout(nil))
}

func TestSocketErrorUnwrap(t *testing.T) {
	err := &SocketError{Op: "receive", Err: syscall.EBADF}
	assert.ErrorIs(t, err, syscall.EBADF)
	assert.Equal(t, "receive: bad file descriptor", err.Error())
}
