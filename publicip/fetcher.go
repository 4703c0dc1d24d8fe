// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package publicip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/DataDog/datadog-mping/log"
)

// retryInterval is the first wait between two tries of an IP checker
var retryInterval = 500 * time.Millisecond

// GetPublicIP asks the IP checkers in turn and returns the first IPv4
// address one of them reports
func GetPublicIP(ctx context.Context, client *http.Client) (netip.Addr, error) {
	for _, ipChecker := range ipCheckers {
		ip, err := getPublicIPUsingIPChecker(ctx, client, ipChecker)
		if err != nil {
			log.Debugf("error fetching: %s, %s", ipChecker, err)
			continue
		}
		return ip, nil
	}
	return netip.Addr{}, errors.New("no IP found")
}

func getPublicIPUsingIPChecker(ctx context.Context, client *http.Client, dest string) (netip.Addr, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = retryInterval
	expBackoff.MaxInterval = 3 * time.Second

	operation := func() (netip.Addr, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, dest, nil)
		if err != nil {
			return netip.Addr{}, backoff.Permanent(fmt.Errorf("failed to create new request: %w", err))
		}
		resp, err := client.Do(req)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("failed to fetch req: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("failed to read content: %w", err)
		}

		// client errors are not retried
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return netip.Addr{}, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return netip.Addr{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		tb := strings.TrimSpace(string(body))
		ip, err := netip.ParseAddr(tb)
		if err != nil {
			return netip.Addr{}, backoff.Permanent(fmt.Errorf("IP address not valid: %s", tb))
		}
		if !ip.Is4() {
			return netip.Addr{}, backoff.Permanent(fmt.Errorf("not an IPv4 address: %s", ip))
		}
		return ip, nil
	}

	ip, err := backoff.Retry(ctx, operation, backoff.WithBackOff(expBackoff), backoff.WithMaxTries(MaxTries))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("backoff retry error: %w", err)
	}
	return ip, nil
}
