// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package publicip discovers the public IPv4 address of the host
package publicip

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	externalip "github.com/glendc/go-external-ip"

	"github.com/DataDog/datadog-mping/cache"
	"github.com/DataDog/datadog-mping/log"
)

const defaultPublicIPCacheExpiration = 2 * time.Hour

// externalIPFn is swapped in tests
var externalIPFn = consensusIP

type PublicIPFetcher struct {
	client *http.Client
}

func NewPublicIPFetcher() *PublicIPFetcher {
	return &PublicIPFetcher{
		client: &http.Client{Timeout: Timeout},
	}
}

// GetIP returns the public address, asking a consensus of sources first and
// the IP checkers when no consensus is reached. The answer is cached.
func (p *PublicIPFetcher) GetIP(ctx context.Context) (netip.Addr, error) {
	return cache.GetWithExpiration(cache.NamespacePublicIP.Key("ipv4"), func() (netip.Addr, error) {
		ip, err := externalIPFn()
		if err == nil {
			log.Debugf("Public IP fetched: %s", ip)
			return ip, nil
		}
		log.Debugf("no public IP consensus, falling back to IP checkers: %s", err)
		return GetPublicIP(ctx, p.client)
	}, defaultPublicIPCacheExpiration)
}

func consensusIP() (netip.Addr, error) {
	cfg := externalip.DefaultConsensusConfig().WithTimeout(Timeout)
	consensus := externalip.NewConsensus(cfg, nil)
	for _, api := range APIURIs {
		if err := consensus.AddVoter(externalip.NewHTTPSource(api.URI), api.Weight); err != nil {
			return netip.Addr{}, err
		}
	}
	if err := consensus.UseIPProtocol(4); err != nil {
		return netip.Addr{}, err
	}

	ip, err := consensus.ExternalIP()
	if err != nil {
		return netip.Addr{}, err
	}
	addr, ok := netip.AddrFromSlice(ip.To4())
	if !ok {
		return netip.Addr{}, fmt.Errorf("not an IPv4 address: %s", ip)
	}
	return addr, nil
}
