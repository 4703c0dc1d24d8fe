// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSockFilters(t *testing.T) {
	raw, err := echoReplyFilter(0x1234)
	require.NoError(t, err)

	prog := sockFilters(raw)
	require.Len(t, prog, len(raw))
	for i, ins := range raw {
		assert.Equal(t, unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}, prog[i])
	}
}

func TestDrainSocket(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	for i := 0; i < 3; i++ {
		_, err := unix.Write(fds[1], []byte("queued before the filter"))
		require.NoError(t, err)
	}

	drainSocket(fds[0])

	_, _, err = unix.Recvfrom(fds[0], make([]byte, 64), unix.MSG_DONTWAIT)
	assert.ErrorIs(t, err, unix.EAGAIN)
}
