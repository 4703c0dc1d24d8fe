// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"context"
	"sort"
	"time"

	"github.com/DataDog/datadog-mping/bucket"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/result"
)

// reportInterval is how often aged windows are collected
var reportInterval = time.Second

// reporter pops aged windows from the store and publishes per-target stats
type reporter struct {
	delay      time.Duration
	store      *bucket.Store
	printStats bool
	out        chan<- result.TargetStats
	hostnames  map[string]string
	runID      string
	now        func() time.Time

	// windows at or below the watermark were already reported
	watermark    int64
	hasWatermark bool
}

// run reports on every tick until stop is done, then flushes every window.
// Channel sends give up when emit is done.
func (r *reporter) run(stop, emit context.Context) error {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop.Done():
			// nothing is sent or received anymore
			r.flush(emit)
			return nil
		case <-ticker.C:
			r.drain(emit)
		}
	}
}

// drain reports every window that ended at least delay ago
func (r *reporter) drain(ctx context.Context) {
	r.collect(ctx, false)
}

// flush reports every window regardless of its age
func (r *reporter) flush(ctx context.Context) {
	r.collect(ctx, true)
}

func (r *reporter) collect(ctx context.Context, all bool) {
	now := r.now()
	for {
		oldest, ok := r.store.PeekOldest()
		if !ok {
			return
		}
		// the sender may still write to a window until its second is over
		if !all && !r.stale(oldest.Key) && time.Unix(oldest.Key+1, 0).Add(r.delay).After(now) {
			return
		}
		b, ok := r.store.PopOldest()
		if !ok {
			return
		}
		if r.stale(b.Key) {
			log.Tracef("dropping window %d, already reported", b.Key)
			continue
		}
		r.watermark, r.hasWatermark = b.Key, true
		r.emit(ctx, aggregate(b))
	}
}

func (r *reporter) stale(key int64) bool {
	return r.hasWatermark && key <= r.watermark
}

func (r *reporter) emit(ctx context.Context, stats []result.TargetStats) {
	for _, s := range stats {
		s.RunID = r.runID
		s.Hostname = r.hostnames[s.Target]
		if r.printStats {
			log.Infof("%s", s.Line())
		}
		log.WithFields(map[string]any{
			"target":     s.Target,
			"sent":       s.Sent,
			"recv":       s.Received,
			"loss_rate":  s.LossRate,
			"latency_ms": float64(s.Latency) / float64(time.Millisecond),
		}).Debug("window stats")

		if r.out == nil {
			continue
		}
		select {
		case r.out <- s:
		case <-ctx.Done():
			log.Debugf("dropping stats for %s: %s", s.Target, ctx.Err())
			return
		}
	}
}

// aggregate returns the stats of every target in b, sorted by target
func aggregate(b *bucket.Bucket) []result.TargetStats {
	type acc struct {
		stats    result.TargetStats
		sum      time.Duration
		measured int
	}
	byTarget := make(map[string]*acc)
	for _, e := range b.Entries() {
		a, ok := byTarget[e.Target]
		if !ok {
			a = &acc{stats: result.TargetStats{Window: b.Key, Target: e.Target}}
			byTarget[e.Target] = a
		}
		a.stats.Sent++
		if e.Received {
			a.stats.Received++
		}
		if e.Corrupted {
			a.stats.Corrupted++
		}
		if !e.HasLatency {
			continue
		}
		lat := e.Latency()
		if a.measured == 0 || lat < a.stats.MinLatency {
			a.stats.MinLatency = lat
		}
		if lat > a.stats.MaxLatency {
			a.stats.MaxLatency = lat
		}
		a.sum += lat
		a.measured++
	}

	stats := make([]result.TargetStats, 0, len(byTarget))
	for _, a := range byTarget {
		if a.measured > 0 {
			a.stats.Latency = a.sum / time.Duration(a.measured)
		}
		a.stats.Normalize()
		stats = append(stats, a.stats)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Target < stats[j].Target })
	return stats
}
