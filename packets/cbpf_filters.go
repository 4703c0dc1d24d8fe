// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package packets

import (
	"fmt"

	"golang.org/x/net/bpf"
	"golang.org/x/net/ipv4"
)

// this is a simple BPF program that drops all packets no matter what
var dropAllFilter = []bpf.RawInstruction{
	{Op: 0x6, Jt: 0, Jf: 0, K: 0x00000000},
}

// echoReplyProgram accepts ICMP Echo Replies carrying ident. Packets on a raw
// ICMP socket start at the IP header, so the ICMP offset comes from the IHL.
func echoReplyProgram(ident uint16) []bpf.Instruction {
	return []bpf.Instruction{
		// x = 4*([0]&0xf)
		bpf.LoadMemShift{Off: 0},
		// icmp type
		bpf.LoadIndirect{Off: 0, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(ipv4.ICMPTypeEchoReply), SkipTrue: 3},
		// icmp identifier
		bpf.LoadIndirect{Off: 4, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(ident), SkipTrue: 1},
		bpf.RetConstant{Val: 0x40000},
		bpf.RetConstant{Val: 0},
	}
}

// echoReplyFilter assembles echoReplyProgram for SO_ATTACH_FILTER
func echoReplyFilter(ident uint16) ([]bpf.RawInstruction, error) {
	raw, err := bpf.Assemble(echoReplyProgram(ident))
	if err != nil {
		return nil, fmt.Errorf("failed to assemble echo reply filter: %w", err)
	}
	return raw, nil
}
