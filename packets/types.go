// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package packets provides the raw ICMPv4 socket, the echo wire codec and the
// timestamping capability used by the ping engine
package packets

//go:generate mockgen -source=types.go -destination=mock_packets.go -package=packets

import (
	"net/netip"
	"time"
)

// Sink transmits ICMP messages. The buffer starts at the ICMP header; the
// kernel builds the IP header.
type Sink interface {
	// WriteTo sends buf to addr
	WriteTo(buf []byte, addr netip.Addr) error
	// Close closes the Sink
	Close() error
}

// Source reads IPv4 datagrams carrying ICMP.
type Source interface {
	// SetReadDeadline sets the deadline for when a Read() call must finish
	SetReadDeadline(t time.Time) error
	// Read reads one datagram, starting at the IP header, into buf. It returns
	// the datagram length and the kernel receive timestamp, which is the zero
	// time when the kernel did not attach one. A deadline expiry is reported
	// as a *common.ReceiveProbeNoPktError.
	Read(buf []byte) (int, time.Time, error)
	// Close closes the Source
	Close() error
}

// Clock is the timestamping capability of a socket. The precise
// implementation reads kernel transmit timestamps; the fallback only has the
// wall clock.
type Clock interface {
	// Name identifies the implementation in logs and session records
	Name() string
	// Now returns the current wall-clock time
	Now() time.Time
	// Precise reports whether TxTimestamp can return kernel timestamps
	Precise() bool
	// TxTimestamp returns the kernel transmit timestamp of a recent send,
	// without blocking. ok is false when none is queued.
	TxTimestamp() (ts time.Time, ok bool)
}

// SocketConfig holds the options applied to a new ICMP socket
type SocketConfig struct {
	// TTL is the IP time to live of outgoing requests
	TTL int
	// TOS is the IP type of service byte; 0 keeps the system default
	TOS int
	// Ident is the ICMP identifier replies must carry to pass the kernel filter
	Ident uint16
	// WriteTimeout bounds a single send
	WriteTimeout time.Duration
}

// Handle is a socket usable both to send and to receive
type Handle interface {
	Sink
	Source
}
