// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"net"
	"net/netip"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/packets"
)

// makeReply builds an IPv4 datagram carrying an ICMP message from src
func makeReply(t testing.TB, src netip.Addr, typeCode layers.ICMPv4TypeCode, id, seq uint16, payload []byte) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.IP(src.AsSlice()),
		DstIP:    net.ParseIP("127.0.0.1").To4(),
	}
	icmp := &layers.ICMPv4{TypeCode: typeCode, Id: id, Seq: seq}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, icmp, gopacket.Payload(payload)))
	return append([]byte(nil), buf.Bytes()...)
}

func echoReplyCode() layers.ICMPv4TypeCode {
	return layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0)
}

// loopback answers every echo request written to it, like a responsive
// host would
type loopback struct {
	t       testing.TB
	replies chan []byte

	mu       sync.Mutex
	deadline time.Time
	sent     map[netip.Addr]int
	corrupt  bool
}

var _ packets.Sink = &loopback{}
var _ packets.Source = &loopback{}

func newLoopback(t testing.TB) *loopback {
	return &loopback{
		t:       t,
		replies: make(chan []byte, 1024),
		sent:    make(map[netip.Addr]int),
	}
}

func (l *loopback) WriteTo(buf []byte, addr netip.Addr) error {
	var req layers.ICMPv4
	if err := req.DecodeFromBytes(buf, gopacket.NilDecodeFeedback); err != nil {
		return err
	}
	payload := append([]byte(nil), req.Payload...)

	l.mu.Lock()
	l.sent[addr]++
	if l.corrupt {
		payload[len(payload)-1] ^= 0x01
	}
	l.mu.Unlock()

	l.replies <- makeReply(l.t, addr, echoReplyCode(), req.Id, req.Seq, payload)
	return nil
}

func (l *loopback) SetReadDeadline(t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deadline = t
	return nil
}

func (l *loopback) Read(buf []byte) (int, time.Time, error) {
	l.mu.Lock()
	wait := time.Until(l.deadline)
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case pkt := <-l.replies:
		return copy(buf, pkt), time.Time{}, nil
	case <-timer.C:
		return 0, time.Time{}, &common.ReceiveProbeNoPktError{Err: os.ErrDeadlineExceeded}
	}
}

func (l *loopback) Close() error { return nil }

func (l *loopback) sentTo(addr netip.Addr) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent[addr]
}
