// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package common

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookupIP(t *testing.T, answers map[string][]net.IP) *int {
	calls := 0
	orig := LookupIPFn
	LookupIPFn = func(_ context.Context, network, host string) ([]net.IP, error) {
		calls++
		assert.Equal(t, "ip4", network)
		ips, ok := answers[host]
		if !ok {
			return nil, errors.New("no such host")
		}
		return ips, nil
	}
	t.Cleanup(func() { LookupIPFn = orig })
	return &calls
}

func TestResolveTargets(t *testing.T) {
	stubLookupIP(t, map[string][]net.IP{
		"resolve-targets.example": {net.ParseIP("2001:db8::1"), net.ParseIP("192.0.2.10")},
	})

	got, err := ResolveTargets([]string{"8.8.8.8,1.1.1.1", "resolve-targets.example", "8.8.8.8", " "})
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("8.8.8.8"),
		netip.MustParseAddr("1.1.1.1"),
		netip.MustParseAddr("192.0.2.10"),
	}, got)
}

func TestResolveTargetsEmpty(t *testing.T) {
	_, err := ResolveTargets([]string{",", ""})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "targets", cfgErr.Field)
}

func TestResolveTargetRejectsIPv6(t *testing.T) {
	_, err := ResolveTarget("2001:db8::1")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolveTargetCachesAnswers(t *testing.T) {
	calls := stubLookupIP(t, map[string][]net.IP{
		"cached-target.example": {net.ParseIP("192.0.2.20")},
	})

	for i := 0; i < 3; i++ {
		addr, err := ResolveTarget("cached-target.example")
		require.NoError(t, err)
		assert.Equal(t, netip.MustParseAddr("192.0.2.20"), addr)
	}
	assert.Equal(t, 1, *calls)
}

func TestResolveTargetDNSFailure(t *testing.T) {
	calls := stubLookupIP(t, nil)

	_, err := ResolveTarget("missing-target.example")
	var dnsErr *DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, "missing-target.example", dnsErr.Host)

	// failures are not cached
	_, err = ResolveTarget("missing-target.example")
	require.Error(t, err)
	assert.Equal(t, 2, *calls)
}
