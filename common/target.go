// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/DataDog/datadog-mping/cache"
)

const (
	dnsCacheExpiration = 5 * time.Minute
	dnsDefaultTimeout  = 5 * time.Second
)

// LookupIPFn is defined as variable to ease testing
var LookupIPFn = net.DefaultResolver.LookupIP

// ResolveTargets turns raw CLI targets (addresses, hostnames or comma
// separated lists of both) into a deduplicated list of IPv4 addresses,
// preserving input order.
func ResolveTargets(raw []string) ([]netip.Addr, error) {
	var targets []netip.Addr
	seen := make(map[netip.Addr]struct{})
	for _, arg := range raw {
		for _, host := range strings.Split(arg, ",") {
			host = strings.TrimSpace(host)
			if host == "" {
				continue
			}
			addr, err := ResolveTarget(host)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			targets = append(targets, addr)
		}
	}
	if len(targets) == 0 {
		return nil, &ConfigError{Field: "targets", Reason: "at least one target is required"}
	}
	return targets, nil
}

// ResolveTarget parses host as an IPv4 address, or resolves it and returns
// its first IPv4 address. Answers are cached.
func ResolveTarget(host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, &ConfigError{Field: "target", Reason: fmt.Sprintf("%s is not an IPv4 address", host)}
		}
		return addr, nil
	}

	return cache.GetWithExpiration(cache.NamespaceDNS.Key(host), func() (netip.Addr, error) {
		ctx, cancel := context.WithTimeout(context.Background(), dnsDefaultTimeout)
		defer cancel()

		ips, err := LookupIPFn(ctx, "ip4", host)
		if err != nil {
			return netip.Addr{}, &DNSError{Host: host, Err: err}
		}
		for _, ip := range ips {
			if addr, ok := netip.AddrFromSlice(ip.To4()); ok {
				return addr, nil
			}
		}
		return netip.Addr{}, &DNSError{Host: host, Err: errors.New("no IPv4 address found")}
	}, dnsCacheExpiration)
}
