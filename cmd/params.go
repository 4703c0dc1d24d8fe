// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/mping"
)

// PingParams are the command line options of a ping session
type PingParams struct {
	Timeout        time.Duration
	TTL            int
	TOS            int
	Ident          int
	Size           int
	Rate           int
	RateForAll     bool
	Delay          time.Duration
	Count          int
	MaxBuckets     int
	ReverseDns     bool
	SourcePublicIP bool
	LogLevel       string
	Verbose        bool
}

// AddPingFlags registers the ping options on fs
func AddPingFlags(fs *pflag.FlagSet, p *PingParams) {
	fs.DurationVarP(&p.Timeout, "timeout", "t", common.DefaultTimeout*time.Millisecond, "Socket read and write timeout")
	fs.IntVarP(&p.TTL, "ttl", "", common.DefaultTTL, "IP time to live")
	fs.IntVarP(&p.TOS, "tos", "", common.DefaultTOS, "IP type of service (0 keeps the system default)")
	fs.IntVarP(&p.Ident, "ident", "", os.Getpid()&0xffff, "ICMP identifier")
	fs.IntVarP(&p.Size, "size", "s", common.DefaultPayloadLen, "ICMP payload size in bytes, 16 byte timestamp included")
	fs.IntVarP(&p.Rate, "rate", "r", common.DefaultRate, "Packets per second, per target unless --rate-for-all")
	fs.BoolVarP(&p.RateForAll, "rate-for-all", "", false, "Make --rate the aggregate rate across all targets")
	fs.DurationVarP(&p.Delay, "delay", "d", common.DefaultDelay*time.Second, "How long a window ages before it is reported")
	fs.IntVarP(&p.Count, "count", "c", common.DefaultCount, "Stop after this many probes per target (0 runs until interrupted)")
	fs.IntVarP(&p.MaxBuckets, "max-buckets", "", 0, "Cap on live one-second windows (0 is unbounded)")
	fs.BoolVarP(&p.ReverseDns, "reverse-dns", "", common.DefaultReverseDns, "Enrich targets with reverse DNS names")
	fs.BoolVarP(&p.SourcePublicIP, "source-public-ip", "", false, "Record the public IP of this host in the session")
	fs.StringVarP(&p.LogLevel, "log-level", "l", "info", "Log level (error, warn, info, debug, trace)")
	fs.BoolVarP(&p.Verbose, "verbose", "v", false, "verbose")
}

// Config converts the options into an engine configuration
func (p PingParams) Config() (mping.Config, error) {
	if p.Ident < 0 || p.Ident > 0xffff {
		return mping.Config{}, &common.ConfigError{Field: "ident", Reason: fmt.Sprintf("%d is not between 0 and 65535", p.Ident)}
	}
	cfg := mping.Config{
		Timeout:    p.Timeout,
		TTL:        p.TTL,
		TOS:        p.TOS,
		Ident:      uint16(p.Ident),
		PayloadLen: p.Size,
		Rate:       p.Rate,
		RateForAll: p.RateForAll,
		Delay:      p.Delay,
		Count:      p.Count,
		MaxBuckets: p.MaxBuckets,
	}
	return cfg, cfg.Validate()
}

// SetupLogging applies --log-level and --verbose; verbose raises the level to
// at least debug
func (p PingParams) SetupLogging() error {
	level, err := log.ParseLogLevel(p.LogLevel)
	if err != nil {
		return &common.ConfigError{Field: "log level", Reason: err.Error()}
	}
	if p.Verbose && level < log.LevelDebug {
		level = log.LevelDebug
	}
	log.SetLogLevel(level)
	return nil
}
