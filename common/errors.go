// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorCode is a stable classification of a ping session failure.
type ErrorCode string

const (
	// ErrCodeInvalidConfig indicates bad parameters from the caller.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeDNS indicates a target could not be resolved.
	ErrCodeDNS ErrorCode = "DNS"
	// ErrCodeDenied indicates the process may not open raw sockets.
	ErrCodeDenied ErrorCode = "DENIED"
	// ErrCodeSocket indicates a fatal socket failure while sending or receiving.
	ErrCodeSocket ErrorCode = "SOCKET"
	// ErrCodeTimeout indicates the operation timed out or was canceled.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnknown is the catch-all for unclassified errors.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// BadPacketError is returned when a packet read from the wire is malformed
// or does not belong to this session
type BadPacketError string

// Error implements the error interface for
// BadPacketError
func (b BadPacketError) Error() string {
	return string(b)
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SocketError is a fatal failure of a raw socket operation. Op names the
// operation: socket, setsockopt, dup, filter, send or receive.
type SocketError struct {
	Op  string
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *SocketError) Unwrap() error {
	return e.Err
}

// ReceiveProbeNoPktError is returned when a read deadline expires without
// any packet. Callers retry.
type ReceiveProbeNoPktError struct {
	Err error
}

func (p *ReceiveProbeNoPktError) Error() string {
	return fmt.Sprintf("ReceiveProbe() timed out: %s", p.Err)
}

func (p *ReceiveProbeNoPktError) Unwrap() error {
	return p.Err
}

// DNSError wraps a failed target resolution.
type DNSError struct {
	Host string
	Err  error
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("failed to resolve host %q: %s", e.Host, e.Err)
}

func (e *DNSError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a read or write deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var noPkt *ReceiveProbeNoPktError
	if errors.As(err, &noPkt) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// PingError is a classified error from a ping session.
type PingError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *PingError) Error() string {
	return e.Message
}

func (e *PingError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body returned on error from the HTTP API.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ClassifyError inspects an error chain and returns a PingError with the appropriate code.
func ClassifyError(err error) *PingError {
	if err == nil {
		return nil
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return &PingError{Code: ErrCodeInvalidConfig, Message: err.Error(), Err: err}
	}

	var dnsErr *DNSError
	if errors.As(err, &dnsErr) {
		return &PingError{Code: ErrCodeDNS, Message: err.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &PingError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return &PingError{Code: ErrCodeDenied, Message: err.Error(), Err: err}
		case syscall.ETIMEDOUT:
			return &PingError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
		}
	}

	var sockErr *SocketError
	if errors.As(err, &sockErr) {
		return &PingError{Code: ErrCodeSocket, Message: err.Error(), Err: err}
	}

	if IsTimeout(err) {
		return &PingError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
	}

	return &PingError{Code: ErrCodeUnknown, Message: err.Error(), Err: err}
}
