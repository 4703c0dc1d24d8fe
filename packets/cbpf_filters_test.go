// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"net"
	"testing"

	"golang.org/x/net/bpf"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeICMPDatagram(t *testing.T, typeCode layers.ICMPv4TypeCode, id uint16, withOptions bool) []byte {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.ParseIP("192.0.2.1"),
		DstIP:    net.ParseIP("192.0.2.2"),
	}
	if withOptions {
		ip.Options = []layers.IPv4Option{{OptionType: 1}, {OptionType: 1}, {OptionType: 1}, {OptionType: 1}}
	}
	icmp := &layers.ICMPv4{TypeCode: typeCode, Id: id, Seq: 1}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, ip, icmp, gopacket.Payload(make([]byte, 24)))
	require.NoError(t, err)
	return buf.Bytes()
}

func runFilter(t *testing.T, ident uint16, pkt []byte) int {
	vm, err := bpf.NewVM(echoReplyProgram(ident))
	require.NoError(t, err)
	n, err := vm.Run(pkt)
	require.NoError(t, err)
	return n
}

func TestEchoReplyFilter(t *testing.T) {
	const ident = 0x1234
	reply := layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0)
	request := layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)
	unreachable := layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost)

	tests := []struct {
		name   string
		pkt    []byte
		accept bool
	}{
		{"echo reply with our ident", makeICMPDatagram(t, reply, ident, false), true},
		{"echo reply with ip options", makeICMPDatagram(t, reply, ident, true), true},
		{"foreign echo reply", makeICMPDatagram(t, reply, ident+1, false), false},
		{"echo request", makeICMPDatagram(t, request, ident, false), false},
		{"unreachable", makeICMPDatagram(t, unreachable, ident, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := runFilter(t, ident, tt.pkt)
			if tt.accept {
				assert.Equal(t, 0x40000, n)
			} else {
				assert.Zero(t, n)
			}
		})
	}
}

func TestEchoReplyFilterAssembles(t *testing.T) {
	raw, err := echoReplyFilter(7)
	require.NoError(t, err)
	assert.Len(t, raw, len(echoReplyProgram(7)))
}

func TestDropAllFilter(t *testing.T) {
	prog, allDecoded := bpf.Disassemble(dropAllFilter)
	require.True(t, allDecoded)
	vm, err := bpf.NewVM(prog)
	require.NoError(t, err)

	for _, pkt := range [][]byte{
		makeICMPDatagram(t, layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0), 7, false),
		makeICMPDatagram(t, layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), 7, false),
	} {
		n, err := vm.Run(pkt)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}
