// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-mping/common"
)

func parseFlags(t *testing.T, argv ...string) PingParams {
	t.Helper()
	var p PingParams
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddPingFlags(fs, &p)
	require.NoError(t, fs.Parse(argv))
	return p
}

func TestPingFlagsDefaults(t *testing.T) {
	p := parseFlags(t)
	cfg, err := p.Config()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 64, cfg.TTL)
	assert.Equal(t, 64, cfg.PayloadLen)
	assert.Equal(t, 100, cfg.Rate)
	assert.Equal(t, 3*time.Second, cfg.Delay)
	assert.Equal(t, 0, cfg.Count)
	assert.False(t, cfg.RateForAll)
	assert.Equal(t, "info", p.LogLevel)
}

func TestPingFlags(t *testing.T) {
	p := parseFlags(t,
		"-t", "250ms", "--ttl", "32", "--tos", "184", "--ident", "4242",
		"-s", "128", "-r", "20", "--rate-for-all", "-d", "5s", "-c", "7",
		"--max-buckets", "30", "--reverse-dns", "--source-public-ip", "-l", "debug",
	)
	cfg, err := p.Config()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 32, cfg.TTL)
	assert.Equal(t, 184, cfg.TOS)
	assert.Equal(t, uint16(4242), cfg.Ident)
	assert.Equal(t, 128, cfg.PayloadLen)
	assert.Equal(t, 20, cfg.Rate)
	assert.True(t, cfg.RateForAll)
	assert.Equal(t, 5*time.Second, cfg.Delay)
	assert.Equal(t, 7, cfg.Count)
	assert.Equal(t, 30, cfg.MaxBuckets)
	assert.True(t, p.ReverseDns)
	assert.True(t, p.SourcePublicIP)
	assert.Equal(t, "debug", p.LogLevel)
}

func TestPingParamsConfigErrors(t *testing.T) {
	tests := []struct {
		name          string
		argv          []string
		expectedField string
	}{
		{"ident too large", []string{"--ident", "70000"}, "ident"},
		{"negative ident", []string{"--ident", "-1"}, "ident"},
		{"payload too small", []string{"-s", "8"}, "payload length"},
		{"zero rate", []string{"-r", "0"}, "rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(t, tt.argv...).Config()
			var cfgErr *common.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.expectedField, cfgErr.Field)
		})
	}
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, PingParams{LogLevel: "warn"}.SetupLogging())
	assert.NoError(t, PingParams{LogLevel: "info", Verbose: true}.SetupLogging())

	err := PingParams{LogLevel: "loud"}.SetupLogging()
	var cfgErr *common.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "log level", cfgErr.Field)

	t.Cleanup(func() { _ = PingParams{LogLevel: "info"}.SetupLogging() })
}
