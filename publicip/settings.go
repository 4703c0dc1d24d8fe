// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package publicip

import "time"

// MaxTries is the maximum amount of tries to attempt to one IP checker.
const MaxTries = 3

// Timeout sets the time limit of collecting votes from the consensus sources.
var Timeout = 2 * time.Second

// APIURIs are the consensus voters. TLS-protected sources weigh more.
var APIURIs = []struct {
	URI    string
	Weight uint
}{
	{"https://api.ipify.org", 3},
	{"https://icanhazip.com", 3},
	{"https://checkip.amazonaws.com", 3},
	{"http://ipinfo.io/ip", 1},
	{"http://ipecho.net/plain", 1},
	{"http://ifconfig.me/ip", 1},
	{"http://ident.me", 1},
	{"http://whatismyip.akamai.com", 1},
}

// ipCheckers are queried one after the other when the consensus fails
var ipCheckers = []string{
	"https://icanhazip.com/",         // owned by cloudflare
	"https://ipinfo.io/ip",           // GeoIP info provider
	"https://checkip.amazonaws.com/", // Amazon
	"https://api.ipify.org/",         // Dedicated Public IP info and GeoIP info provider
	"https://whatismyip.akamai.com/", // Akamai is a CDN Provider
}
