// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package common

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// probePort is only used to let the kernel pick a route; nothing is sent to it
const probePort = 33434

// sourceViaDial asks the kernel for the local address of a connected UDP
// socket towards dest. No packet leaves the host.
func sourceViaDial(dest netip.Addr) (netip.Addr, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(dest.String(), strconv.Itoa(probePort)))
	if err != nil {
		return netip.Addr{}, err
	}
	defer conn.Close()

	localUDPAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.Addr{}, fmt.Errorf("invalid address type for %s: want %T, got %T", conn.LocalAddr(), localUDPAddr, conn.LocalAddr())
	}
	src, ok := netip.AddrFromSlice(localUDPAddr.IP)
	if !ok {
		return netip.Addr{}, fmt.Errorf("invalid local address %s", localUDPAddr.IP)
	}
	return loopbackFor(dest, src.Unmap()), nil
}

// loopbackFor forces a loopback source when the destination is loopback
func loopbackFor(dest, src netip.Addr) netip.Addr {
	if dest.IsLoopback() && !src.IsLoopback() {
		return netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
	return src
}
