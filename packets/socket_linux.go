// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

//go:build linux

package packets

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/DataDog/datadog-mping/common"
)

// oobSize fits one SCM_TIMESTAMPING message (three timespecs)
const oobSize = 128

// ICMPSocket is a raw IPv4 ICMP socket. The same handle is used as a Sink by
// the sender; a Dup of it is used as a Source by the receiver.
type ICMPSocket struct {
	sock         *os.File
	rawConn      syscall.RawConn
	writeTimeout time.Duration
	oob          []byte
	errqBuf      []byte
	errqOob      []byte
}

var _ Handle = &ICMPSocket{}

// NewICMPSocket opens a raw ICMPv4 socket, applies cfg and attaches a kernel
// filter that only lets through Echo Replies carrying cfg.Ident.
func NewICMPSocket(cfg SocketConfig) (*ICMPSocket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_ICMP)
	if err != nil {
		return nil, &common.SocketError{Op: "socket", Err: err}
	}

	if err := configure(fd, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	s, err := newICMPSocket(fd, cfg.WriteTimeout)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return s, nil
}

func configure(fd int, cfg SocketConfig) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, cfg.TTL); err != nil {
		return &common.SocketError{Op: "setsockopt", Err: pkgerrors.Wrapf(err, "IP_TTL=%d", cfg.TTL)}
	}
	if cfg.TOS > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, cfg.TOS); err != nil {
			return &common.SocketError{Op: "setsockopt", Err: pkgerrors.Wrapf(err, "IP_TOS=%d", cfg.TOS)}
		}
	}

	// packets queued before the filter is attached bypass it, so start from
	// an empty queue
	if err := attachFilter(fd, dropAllFilter); err != nil {
		return err
	}
	drainSocket(fd)

	filter, err := echoReplyFilter(cfg.Ident)
	if err != nil {
		return &common.SocketError{Op: "filter", Err: err}
	}
	return attachFilter(fd, filter)
}

func attachFilter(fd int, filter []bpf.RawInstruction) error {
	prog := sockFilters(filter)
	fprog := unix.SockFprog{Len: uint16(len(prog)), Filter: &prog[0]}
	if err := unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &fprog); err != nil {
		return &common.SocketError{Op: "filter", Err: pkgerrors.Wrap(err, "SO_ATTACH_FILTER")}
	}
	return nil
}

func sockFilters(filter []bpf.RawInstruction) []unix.SockFilter {
	prog := make([]unix.SockFilter, len(filter))
	for i, ins := range filter {
		prog[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return prog
}

// drainSocket discards everything queued on the nonblocking fd
func drainSocket(fd int) {
	buf := make([]byte, 1)
	for {
		if _, _, err := unix.Recvfrom(fd, buf, unix.MSG_DONTWAIT); err != nil {
			return
		}
	}
}

func newICMPSocket(fd int, writeTimeout time.Duration) (*ICMPSocket, error) {
	sock := os.NewFile(uintptr(fd), "icmp")
	rawConn, err := sock.SyscallConn()
	if err != nil {
		sock.Close()
		return nil, &common.SocketError{Op: "socket", Err: fmt.Errorf("failed to get raw connection: %w", err)}
	}
	return &ICMPSocket{
		sock:         sock,
		rawConn:      rawConn,
		writeTimeout: writeTimeout,
		oob:          make([]byte, oobSize),
		errqBuf:      make([]byte, 512),
		errqOob:      make([]byte, oobSize),
	}, nil
}

// Dup returns a second handle on the same socket. Deadlines are per handle,
// so the receiver can block on reads without affecting the sender.
func (s *ICMPSocket) Dup() (*ICMPSocket, error) {
	var newFd int
	var dupErr error
	err := s.rawConn.Control(func(fd uintptr) {
		newFd, dupErr = unix.FcntlInt(fd, unix.F_DUPFD_CLOEXEC, 0)
	})
	if err = errors.Join(err, dupErr); err != nil {
		return nil, &common.SocketError{Op: "dup", Err: err}
	}
	dup, err := newICMPSocket(newFd, s.writeTimeout)
	if err != nil {
		unix.Close(newFd)
		return nil, err
	}
	return dup, nil
}

func (s *ICMPSocket) setsockoptInt(level, opt, value int) error {
	var optErr error
	err := s.rawConn.Control(func(fd uintptr) {
		optErr = unix.SetsockoptInt(int(fd), level, opt, value)
	})
	return errors.Join(err, optErr)
}

// WriteTo sends an ICMP message (buffer starts at the ICMP header) to addr
func (s *ICMPSocket) WriteTo(buf []byte, addr netip.Addr) error {
	if !addr.Is4() {
		return fmt.Errorf("ICMPSocket supports only IPv4 addresses, got %s", addr)
	}
	sa := &unix.SockaddrInet4{Addr: addr.As4()}

	if s.writeTimeout > 0 {
		if err := s.sock.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}

	var err error
	writeErr := s.rawConn.Write(func(fd uintptr) bool {
		err = unix.Sendto(int(fd), buf, 0, sa)
		if err == nil {
			return true
		}

		return !(err == syscall.EAGAIN || err == syscall.EWOULDBLOCK)
	})

	return errors.Join(writeErr, err)
}

// SetReadDeadline sets the deadline of the next Read
func (s *ICMPSocket) SetReadDeadline(t time.Time) error {
	return s.sock.SetReadDeadline(t)
}

// Read reads one IPv4 datagram and its kernel receive timestamp, if any
func (s *ICMPSocket) Read(buf []byte) (int, time.Time, error) {
	var n, oobn int
	var err error
	readErr := s.rawConn.Read(func(fd uintptr) bool {
		n, oobn, _, _, err = unix.Recvmsg(int(fd), buf, s.oob, 0)
		return !(err == syscall.EAGAIN || err == syscall.EWOULDBLOCK)
	})
	if readErr != nil {
		if errors.Is(readErr, os.ErrDeadlineExceeded) {
			return 0, time.Time{}, &common.ReceiveProbeNoPktError{Err: readErr}
		}
		return 0, time.Time{}, readErr
	}
	if err != nil {
		return 0, time.Time{}, err
	}

	ts, _ := parseTimestamp(s.oob[:oobn])
	return n, ts, nil
}

// readErrQueue performs one non-blocking read of the socket error queue and
// returns the transmit timestamp it carries
func (s *ICMPSocket) readErrQueue() (time.Time, bool, error) {
	var oobn int
	var recvErr error
	err := s.rawConn.Control(func(fd uintptr) {
		_, oobn, _, _, recvErr = unix.Recvmsg(int(fd), s.errqBuf, s.errqOob, unix.MSG_ERRQUEUE|unix.MSG_DONTWAIT)
	})
	if err = errors.Join(err, recvErr); err != nil {
		return time.Time{}, false, err
	}
	ts, ok := parseTimestamp(s.errqOob[:oobn])
	return ts, ok, nil
}

// Close closes the handle. The socket itself is released once every
// duplicate is closed.
func (s *ICMPSocket) Close() error {
	return s.sock.Close()
}
