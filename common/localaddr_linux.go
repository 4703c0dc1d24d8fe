//go:build linux

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package common

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"

	"github.com/DataDog/datadog-mping/log"
)

var (
	routeGet    = netlink.RouteGet
	linkByIndex = netlink.LinkByIndex
	addrList    = netlink.AddrList
)

// SourceAddrForHost returns the local address the kernel would use to send
// packets to dest.
//
// On Linux, we prefer asking the kernel for the route via netlink so policy
// routing tables (WireGuard and friends) are honoured. RouteGet can fail with
// EOVERFLOW on hosts with many routes, so we fall back to a connected UDP socket.
func SourceAddrForHost(dest netip.Addr) (netip.Addr, error) {
	src, err := sourceViaNetlink(dest)
	if err == nil {
		return src, nil
	}

	log.Debugf("netlink route lookup failed, falling back to dial: %v", err)
	src, dialErr := sourceViaDial(dest)
	if dialErr != nil {
		return netip.Addr{}, fmt.Errorf("failed to determine source addr: netlink err=%v, dial err=%w", err, dialErr)
	}
	return src, nil
}

func sourceViaNetlink(dest netip.Addr) (netip.Addr, error) {
	destIP := net.IP(dest.AsSlice())
	routes, err := routeGet(destIP)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("netlink route lookup failed: %w", err)
	}
	if len(routes) == 0 {
		return netip.Addr{}, fmt.Errorf("netlink returned no routes for %s", dest)
	}

	route := routes[0]
	src := route.Src

	// If the kernel didn't provide a source, derive one from the interface addresses.
	if src == nil && route.LinkIndex != 0 {
		link, linkErr := linkByIndex(route.LinkIndex)
		if linkErr != nil {
			return netip.Addr{}, fmt.Errorf("netlink failed to fetch link %d: %w", route.LinkIndex, linkErr)
		}
		addrs, addrErr := addrList(link, netlink.FAMILY_V4)
		if addrErr != nil {
			return netip.Addr{}, fmt.Errorf("netlink failed to list addrs for link %d: %w", route.LinkIndex, addrErr)
		}
		for _, a := range addrs {
			if a.IP != nil && a.IP.To4() != nil {
				src = a.IP
				break
			}
		}
	}

	addr, ok := netip.AddrFromSlice(src.To4())
	if !ok {
		return netip.Addr{}, fmt.Errorf("could not determine source IP for route to %s", dest)
	}
	return loopbackFor(dest, addr), nil
}
