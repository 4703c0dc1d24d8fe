// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/packets"
	"github.com/DataDog/datadog-mping/result"
)

func shortReportInterval(t *testing.T) {
	prev := reportInterval
	reportInterval = 50 * time.Millisecond
	t.Cleanup(func() { reportInterval = prev })
}

// sum folds the stats of every window into one record per target
func sum(stats []result.TargetStats) map[string]result.TargetStats {
	totals := make(map[string]result.TargetStats)
	for _, s := range stats {
		total := totals[s.Target]
		total.Target = s.Target
		total.Sent += s.Sent
		total.Received += s.Received
		total.Corrupted += s.Corrupted
		totals[s.Target] = total
	}
	for target, total := range totals {
		total.Normalize()
		totals[target] = total
	}
	return totals
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	var cfgErr *common.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "targets", cfgErr.Field)

	_, err = New([]netip.Addr{netip.MustParseAddr("2001:db8::1")}, DefaultConfig())
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "targets", cfgErr.Field)

	cfg := DefaultConfig()
	cfg.Rate = 0
	_, err = New([]netip.Addr{netip.MustParseAddr("192.0.2.1")}, cfg)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "rate", cfgErr.Field)
}

func TestEngineCountedLoopback(t *testing.T) {
	shortReportInterval(t)

	target := netip.MustParseAddr("127.0.0.1")
	lo := newLoopback(t)

	cfg := DefaultConfig()
	cfg.Rate = 10
	cfg.Count = 5
	cfg.Delay = time.Second

	session := result.NewSession([]string{target.String()}, cfg.Ident)
	out := make(chan result.TargetStats, 16)
	e, err := New([]netip.Addr{target}, cfg,
		WithOutput(out),
		WithSession(session),
		WithHostnames(map[string]string{"127.0.0.1": "localhost"}),
		WithTransport(lo, lo, nil),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	close(out)

	assert.Equal(t, 5, lo.sentTo(target))
	assert.Equal(t, packets.ClockWall, session.Clock)

	var stats []result.TargetStats
	for s := range out {
		assert.Equal(t, session.RunID, s.RunID)
		assert.Equal(t, "localhost", s.Hostname)
		stats = append(stats, s)
	}
	require.NotEmpty(t, stats)
	total := sum(stats)[target.String()]
	assert.Equal(t, 5, total.Sent)
	assert.Equal(t, 5, total.Received)
	assert.Equal(t, 0, total.Loss)
	assert.Equal(t, 0.0, total.LossRate)
	assert.Equal(t, 0, total.Corrupted)
	assert.Equal(t, 0, e.Store().Len())
}

func TestEngineReportsEveryProbeAcrossWindows(t *testing.T) {
	for _, delay := range []time.Duration{0, 500 * time.Millisecond} {
		t.Run(delay.String(), func(t *testing.T) {
			shortReportInterval(t)

			target := netip.MustParseAddr("127.0.0.1")
			lo := newLoopback(t)

			// 5 probes per second for 15 passes spans at least three windows
			cfg := DefaultConfig()
			cfg.Rate = 5
			cfg.Count = 15
			cfg.Delay = delay

			out := make(chan result.TargetStats, 64)
			e, err := New([]netip.Addr{target}, cfg, WithOutput(out), WithTransport(lo, lo, nil))
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			require.NoError(t, e.Run(ctx))
			close(out)

			windows := make(map[int64]bool)
			var stats []result.TargetStats
			for s := range out {
				assert.False(t, windows[s.Window], "window %d reported twice", s.Window)
				windows[s.Window] = true
				stats = append(stats, s)
			}
			assert.GreaterOrEqual(t, len(windows), 2)

			total := sum(stats)[target.String()]
			assert.Equal(t, 15, lo.sentTo(target))
			assert.Equal(t, lo.sentTo(target), total.Sent)
			assert.Equal(t, total.Sent, total.Received)
			assert.Equal(t, 0, e.Store().Len())
		})
	}
}

func TestEngineReportsBitflips(t *testing.T) {
	shortReportInterval(t)

	targets := []netip.Addr{netip.MustParseAddr("127.0.0.2"), netip.MustParseAddr("127.0.0.3")}
	lo := newLoopback(t)
	lo.corrupt = true

	cfg := DefaultConfig()
	cfg.Count = 2
	cfg.Delay = 500 * time.Millisecond

	out := make(chan result.TargetStats, 16)
	e, err := New(targets, cfg, WithOutput(out), WithStatsLog(true), WithTransport(lo, lo, packets.NewWallClock()))
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))
	close(out)

	var stats []result.TargetStats
	for s := range out {
		stats = append(stats, s)
	}
	totals := sum(stats)
	require.Len(t, totals, 2)
	for _, target := range targets {
		total := totals[target.String()]
		assert.Equal(t, 2, total.Sent, target)
		assert.Equal(t, 2, total.Received, target)
		assert.Equal(t, 2, total.Corrupted, target)
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	shortReportInterval(t)

	lo := newLoopback(t)
	cfg := DefaultConfig()
	cfg.Rate = 50
	cfg.Timeout = 100 * time.Millisecond

	e, err := New([]netip.Addr{netip.MustParseAddr("127.0.0.1")}, cfg, WithTransport(lo, lo, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, e.Run(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEngineSendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := packets.NewMockSink(ctrl)
	lo := newLoopback(t)

	boom := errors.New("operation not permitted")
	sink.EXPECT().WriteTo(gomock.Any(), gomock.Any()).Return(boom).Times(1)

	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	e, err := New([]netip.Addr{netip.MustParseAddr("127.0.0.1")}, cfg, WithTransport(sink, lo, nil))
	require.NoError(t, err)

	err = e.Run(context.Background())
	var sockErr *common.SocketError
	require.ErrorAs(t, err, &sockErr)
	assert.Equal(t, "send", sockErr.Op)
}
