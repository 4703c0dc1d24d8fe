// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package reversedns resolves target addresses to hostnames for statistics
// enrichment
package reversedns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/DataDog/datadog-mping/cache"
	"github.com/DataDog/datadog-mping/log"
)

const (
	reverseDnsDefaultTimeout = 5 * time.Second
	reverseDnsCacheExpire    = 10 * time.Minute
)

// LookupAddrFn is defined as variable to ease testing
var LookupAddrFn = net.DefaultResolver.LookupAddr

// GetReverseDnsForIP returns the reverse DNS names for the given address.
func GetReverseDnsForIP(addr netip.Addr) ([]string, error) {
	if !addr.IsValid() {
		return nil, errors.New("invalid IP address")
	}
	return GetReverseDns(addr.String())
}

// GetReverseDns returns the hostnames for the given IP address as a string.
func GetReverseDns(ipAddr string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), reverseDnsDefaultTimeout)
	defer cancel()
	rawReverseDnsNames, err := LookupAddrFn(ctx, ipAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get reverse dns: %w", err)
	}

	reverseDnsNames := []string{}
	for _, name := range rawReverseDnsNames {
		reverseDnsNames = append(reverseDnsNames, strings.TrimRight(name, "."))
	}
	return reverseDnsNames, nil
}

// Hostnames returns the first PTR name of every target that has one, keyed
// by the textual address. Lookups are cached; failures are logged and skipped.
func Hostnames(targets []netip.Addr) map[string]string {
	names := make(map[string]string, len(targets))
	for _, target := range targets {
		key := target.String()
		found, err := cache.GetWithExpiration(cache.NamespaceReverseDNS.Key(key), func() ([]string, error) {
			return GetReverseDnsForIP(target)
		}, reverseDnsCacheExpire)
		if err != nil {
			log.Debugf("reverse dns for %s: %s", key, err)
			continue
		}
		if len(found) > 0 {
			names[key] = found[0]
		}
	}
	return names
}
