// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"fmt"
	"os"
	"time"

	"github.com/DataDog/datadog-mping/common"
)

// Config holds the options of a ping session
type Config struct {
	// Timeout bounds a single socket read or write
	Timeout time.Duration
	// TTL is the IP time to live of echo requests
	TTL int
	// TOS is the IP type of service byte; 0 keeps the system default
	TOS int
	// Ident is the ICMP identifier of every request; replies carrying
	// another identifier are ignored
	Ident uint16
	// PayloadLen is the ICMP payload size, timestamp included
	PayloadLen int
	// Rate is the number of packets per second, see RateForAll
	Rate int
	// RateForAll makes Rate the aggregate packet rate across all targets.
	// When false every target is probed Rate times per second.
	RateForAll bool
	// Delay is how long a window must age past the end of its second
	// before it is reported, giving late replies a chance to arrive
	Delay time.Duration
	// Count stops the session after that many probes per target; 0 runs
	// until the context is canceled
	Count int
	// MaxBuckets caps the number of live windows; 0 means unbounded
	MaxBuckets int
}

// DefaultConfig returns the configuration used by the CLI when no flag is set
func DefaultConfig() Config {
	return Config{
		Timeout:    common.DefaultTimeout * time.Millisecond,
		TTL:        common.DefaultTTL,
		TOS:        common.DefaultTOS,
		Ident:      uint16(os.Getpid() & 0xffff),
		PayloadLen: common.DefaultPayloadLen,
		Rate:       common.DefaultRate,
		Delay:      common.DefaultDelay * time.Second,
		Count:      common.DefaultCount,
	}
}

// Validate checks every field and returns a *common.ConfigError for the
// first invalid one
func (c Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return &common.ConfigError{Field: "timeout", Reason: "must be positive"}
	case c.TTL < 1 || c.TTL > 255:
		return &common.ConfigError{Field: "ttl", Reason: fmt.Sprintf("%d is not between 1 and 255", c.TTL)}
	case c.TOS < 0 || c.TOS > 255:
		return &common.ConfigError{Field: "tos", Reason: fmt.Sprintf("%d is not between 0 and 255", c.TOS)}
	case c.PayloadLen < common.TimestampLen:
		return &common.ConfigError{Field: "payload length", Reason: fmt.Sprintf("must be at least %d bytes", common.TimestampLen)}
	case c.PayloadLen > common.MaxPayloadLen:
		return &common.ConfigError{Field: "payload length", Reason: fmt.Sprintf("must be at most %d bytes", common.MaxPayloadLen)}
	case c.Rate <= 0:
		return &common.ConfigError{Field: "rate", Reason: "must be positive"}
	case c.Delay < 0:
		return &common.ConfigError{Field: "delay", Reason: "must not be negative"}
	case c.Count < 0:
		return &common.ConfigError{Field: "count", Reason: "must not be negative"}
	case c.MaxBuckets < 0:
		return &common.ConfigError{Field: "max buckets", Reason: "must not be negative"}
	}
	return nil
}
