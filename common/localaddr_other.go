//go:build !linux

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package common

import "net/netip"

// SourceAddrForHost returns the local address the kernel would use to send
// packets to dest.
func SourceAddrForHost(dest netip.Addr) (netip.Addr, error) {
	return sourceViaDial(dest)
}
