// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/DataDog/datadog-mping/common"
)

// EchoEncoder serialises ICMPv4 Echo Requests into a reused buffer. It is
// not safe for concurrent use.
type EchoEncoder struct {
	buffer gopacket.SerializeBuffer
}

// NewEchoEncoder returns an encoder sized for payloads of payloadLen bytes
func NewEchoEncoder(payloadLen int) *EchoEncoder {
	return &EchoEncoder{
		buffer: gopacket.NewSerializeBufferExpectedSize(8, payloadLen),
	}
}

// Encode builds an Echo Request with a valid checksum. The returned slice is
// only valid until the next call.
func (e *EchoEncoder) Encode(ident, seq uint16, payload []byte) ([]byte, error) {
	icmpLayer := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       ident,
		Seq:      seq,
	}

	// clear the gopacket.SerializeBuffer
	if len(e.buffer.Bytes()) > 0 {
		if err := e.buffer.Clear(); err != nil {
			e.buffer = gopacket.NewSerializeBuffer()
		}
	}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(e.buffer, opts,
		icmpLayer,
		gopacket.Payload(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize echo request: %w", err)
	}
	return e.buffer.Bytes(), nil
}

// EchoReply is the part of an inbound ICMP message the receiver cares about
type EchoReply struct {
	Src      netip.Addr
	TypeCode layers.ICMPv4TypeCode
	ID       uint16
	Seq      uint16
	// Payload aliases the buffer passed to Parse
	Payload []byte
}

// IsEchoReply reports whether the message is an Echo Reply with code 0
func (r *EchoReply) IsEchoReply() bool {
	return r.TypeCode.Type() == layers.ICMPv4TypeEchoReply && r.TypeCode.Code() == 0
}

// EchoParser decodes datagrams read from a raw ICMP socket. It is not safe
// for concurrent use.
type EchoParser struct {
	ip4     layers.IPv4
	icmp4   layers.ICMPv4
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewEchoParser returns a parser for IPv4 + ICMPv4 datagrams
func NewEchoParser() *EchoParser {
	p := &EchoParser{}
	p.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeIPv4, &p.ip4, &p.icmp4)
	p.parser.IgnoreUnsupported = true
	p.decoded = make([]gopacket.LayerType, 0, 2)
	return p
}

// Parse decodes buf, which starts at the IP header
func (p *EchoParser) Parse(buf []byte) (*EchoReply, error) {
	if err := p.parser.DecodeLayers(buf, &p.decoded); err != nil {
		return nil, common.BadPacketError(fmt.Sprintf("failed to decode packet: %s", err))
	}
	gotICMP := false
	for _, lt := range p.decoded {
		if lt == layers.LayerTypeICMPv4 {
			gotICMP = true
		}
	}
	if !gotICMP {
		return nil, common.BadPacketError("packet is not ICMPv4")
	}

	src, ok := netip.AddrFromSlice(p.ip4.SrcIP.To4())
	if !ok {
		return nil, common.BadPacketError(fmt.Sprintf("invalid source address %s", p.ip4.SrcIP))
	}
	return &EchoReply{
		Src:      src,
		TypeCode: p.icmp4.TypeCode,
		ID:       p.icmp4.Id,
		Seq:      p.icmp4.Seq,
		Payload:  p.icmp4.Payload,
	}, nil
}
