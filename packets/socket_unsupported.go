// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build !linux

package packets

import (
	"errors"
	"net/netip"
	"time"

	"github.com/DataDog/datadog-mping/common"
)

var errUnsupported = errors.New("raw ICMP sockets are not supported on this platform")

// ICMPSocket is unavailable on this platform
type ICMPSocket struct{}

var _ Handle = &ICMPSocket{}

// NewICMPSocket returns an error: this platform is not supported
func NewICMPSocket(_ SocketConfig) (*ICMPSocket, error) {
	return nil, &common.SocketError{Op: "socket", Err: errUnsupported}
}

// Dup returns an error: this platform is not supported
func (s *ICMPSocket) Dup() (*ICMPSocket, error) {
	return nil, &common.SocketError{Op: "dup", Err: errUnsupported}
}

// EnableTimestamping returns the wall clock on this platform
func EnableTimestamping(_ *ICMPSocket) Clock {
	return NewWallClock()
}

func (s *ICMPSocket) WriteTo(_ []byte, _ netip.Addr) error { return errUnsupported }

func (s *ICMPSocket) SetReadDeadline(_ time.Time) error { return errUnsupported }

func (s *ICMPSocket) Read(_ []byte) (int, time.Time, error) { return 0, time.Time{}, errUnsupported }

func (s *ICMPSocket) Close() error { return nil }
