// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package packets

import (
	"errors"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/DataDog/datadog-mping/log"
)

const (
	timestampingTx = unix.SOF_TIMESTAMPING_SOFTWARE |
		unix.SOF_TIMESTAMPING_TX_SOFTWARE |
		unix.SOF_TIMESTAMPING_SYS_HARDWARE |
		unix.SOF_TIMESTAMPING_TX_HARDWARE |
		unix.SOF_TIMESTAMPING_RAW_HARDWARE |
		unix.SOF_TIMESTAMPING_OPT_CMSG |
		unix.SOF_TIMESTAMPING_OPT_TSONLY

	timestampingRx = unix.SOF_TIMESTAMPING_SOFTWARE |
		unix.SOF_TIMESTAMPING_RX_SOFTWARE |
		unix.SOF_TIMESTAMPING_RX_HARDWARE |
		unix.SOF_TIMESTAMPING_RAW_HARDWARE
)

// kernelClock reads transmit timestamps from the socket error queue
type kernelClock struct {
	sock *ICMPSocket
	tx   bool
}

var _ Clock = &kernelClock{}

func (c *kernelClock) Name() string {
	if c.tx {
		return ClockKernel
	}
	return ClockKernelRx
}

func (c *kernelClock) Now() time.Time { return time.Now() }

func (c *kernelClock) Precise() bool { return c.tx }

func (c *kernelClock) TxTimestamp() (time.Time, bool) {
	if !c.tx {
		return time.Time{}, false
	}
	ts, ok, err := c.sock.readErrQueue()
	if err != nil {
		if !errors.Is(err, syscall.EAGAIN) && !errors.Is(err, syscall.EWOULDBLOCK) {
			log.Tracef("failed to read tx timestamp: %s", err)
		}
		return time.Time{}, false
	}
	return ts, ok
}

// EnableTimestamping probes the kernel for timestamping support on s and
// returns the best Clock available: SO_TIMESTAMPING (transmit and receive),
// SO_TIMESTAMP (receive only) or the wall clock. Receive timestamps are
// delivered to every handle sharing the socket, including duplicates.
func EnableTimestamping(s *ICMPSocket) Clock {
	err := s.setsockoptInt(unix.SOL_SOCKET, unix.SO_TIMESTAMPING, timestampingTx|timestampingRx)
	if err == nil {
		return &kernelClock{sock: s, tx: true}
	}
	log.Warnf("SO_TIMESTAMPING unavailable, falling back to SO_TIMESTAMP: %s", err)

	err = s.setsockoptInt(unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1)
	if err == nil {
		return &kernelClock{sock: s, tx: false}
	}
	log.Warnf("SO_TIMESTAMP unavailable, falling back to wall clock: %s", err)
	return NewWallClock()
}

// parseTimestamp extracts a kernel timestamp from control messages.
// SCM_TIMESTAMPING carries software, legacy and raw hardware timespecs; the
// first non-zero one wins.
func parseTimestamp(oob []byte) (time.Time, bool) {
	if len(oob) == 0 {
		return time.Time{}, false
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		log.Tracef("failed to parse control messages: %s", err)
		return time.Time{}, false
	}

	for _, m := range msgs {
		if m.Header.Level != unix.SOL_SOCKET {
			continue
		}
		switch m.Header.Type {
		case unix.SO_TIMESTAMPING:
			var ts [3]unix.Timespec
			raw := unsafe.Slice((*byte)(unsafe.Pointer(&ts[0])), unsafe.Sizeof(ts))
			if len(m.Data) < len(raw) {
				continue
			}
			copy(raw, m.Data)
			for i := range ts {
				if ts[i].Sec != 0 || ts[i].Nsec != 0 {
					return time.Unix(ts[i].Unix()), true
				}
			}
		case unix.SO_TIMESTAMP:
			var tv unix.Timeval
			raw := unsafe.Slice((*byte)(unsafe.Pointer(&tv)), unsafe.Sizeof(tv))
			if len(m.Data) < len(raw) {
				continue
			}
			copy(raw, m.Data)
			if tv.Sec != 0 || tv.Usec != 0 {
				return time.Unix(tv.Unix()), true
			}
		}
	}
	return time.Time{}, false
}
