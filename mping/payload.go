// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/DataDog/datadog-mping/common"
)

// payloads are the four patterns cycled by sequence number: random bytes,
// all zeros, all ones and 0x5A. Bytes before common.TimestampLen are
// overwritten with the send timestamp and never compared.
type payloads [4][]byte

func newPayloads(size int) (payloads, error) {
	var p payloads
	p[0] = make([]byte, size)
	if _, err := rand.Read(p[0]); err != nil {
		return p, fmt.Errorf("failed to generate random payload: %w", err)
	}
	p[1] = bytes.Repeat([]byte{0x00}, size)
	p[2] = bytes.Repeat([]byte{0x01}, size)
	p[3] = bytes.Repeat([]byte{0x5A}, size)
	return p, nil
}

func (p payloads) forSeq(seq uint16) []byte {
	return p[seq%4]
}

// matches reports whether a reply payload carries the pattern expected for seq
func (p payloads) matches(seq uint16, got []byte) bool {
	want := p.forSeq(seq)
	if len(got) != len(want) {
		return false
	}
	return bytes.Equal(got[common.TimestampLen:], want[common.TimestampLen:])
}

// putTimestamp writes ns as a 128-bit big-endian integer at the start of buf
func putTimestamp(buf []byte, ns int64) {
	clear(buf[:8])
	binary.BigEndian.PutUint64(buf[8:common.TimestampLen], uint64(ns))
}

// readTimestamp decodes the send timestamp written by putTimestamp. Values
// that do not fit an int64 are rejected as foreign or corrupted.
func readTimestamp(buf []byte) (int64, bool) {
	if len(buf) < common.TimestampLen {
		return 0, false
	}
	if binary.BigEndian.Uint64(buf[:8]) != 0 {
		return 0, false
	}
	ns := binary.BigEndian.Uint64(buf[8:common.TimestampLen])
	if ns > math.MaxInt64 {
		return 0, false
	}
	return int64(ns), true
}
