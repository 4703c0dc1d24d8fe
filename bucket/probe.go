// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package bucket groups probe results into one-second windows shared by the
// sender, receiver and reporter loops.
package bucket

import (
	"strconv"
	"time"
)

// ProbeResult is one echo request/reply pair for a (target, sequence)
type ProbeResult struct {
	// SendTimeNs is the send instant in nanoseconds since the epoch
	SendTimeNs int64
	// RecvTimeNs is the receive instant, 0 until a reply arrives
	RecvTimeNs int64
	Sequence   uint16
	Target     string
	// LatencyNs is only meaningful when HasLatency is set
	LatencyNs  int64
	HasLatency bool
	Received   bool
	Corrupted  bool
}

// CompositeKey returns the "target-sequence" key of a probe
func CompositeKey(target string, seq uint16) string {
	return target + "-" + strconv.FormatUint(uint64(seq), 10)
}

// Key returns the composite key addressing this probe within its bucket
func (r ProbeResult) Key() string {
	return CompositeKey(r.Target, r.Sequence)
}

// Latency returns the round trip time as a duration
func (r ProbeResult) Latency() time.Duration {
	return time.Duration(r.LatencyNs)
}

// KeyFor returns the bucket key (epoch second) of a nanosecond timestamp
func KeyFor(ns int64) int64 {
	return ns / int64(time.Second)
}
