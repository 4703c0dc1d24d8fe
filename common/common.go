// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package common contains defaults, error types and address helpers shared
// by the ping engine and its front ends
package common

const (
	DefaultTimeout    = 1000 // msec
	DefaultTTL        = 64
	DefaultTOS        = 0
	DefaultPayloadLen = 64
	DefaultRate       = 100 // packets per second
	DefaultDelay      = 3   // sec
	DefaultCount      = 0   // unlimited
	DefaultReverseDns = false
	DefaultServerAddr = ":3766"

	// TimestampLen is the size of the send timestamp carried at the start of
	// every echo payload
	TimestampLen = 16
	// MaxPayloadLen is the largest echo payload that fits in one IPv4 datagram
	MaxPayloadLen = 65507 - 8
)
