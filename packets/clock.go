// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import "time"

const (
	// ClockWall is the name of the wall-clock fallback
	ClockWall = "wall"
	// ClockKernel is the name of the kernel transmit/receive timestamp source
	ClockKernel = "kernel"
	// ClockKernelRx is the name of the receive-only kernel timestamp source
	ClockKernelRx = "kernel-rx"
)

// wallClock is the Clock used when the kernel offers no transmit timestamps
type wallClock struct{}

var _ Clock = wallClock{}

// NewWallClock returns the wall-clock fallback Clock
func NewWallClock() Clock {
	return wallClock{}
}

func (wallClock) Name() string { return ClockWall }

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Precise() bool { return false }

func (wallClock) TxTimestamp() (time.Time, bool) { return time.Time{}, false }
