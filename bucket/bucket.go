// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package bucket

import (
	"sync"

	"github.com/DataDog/datadog-mping/log"
)

// Bucket holds every probe whose send time falls within one epoch second.
// Entries are only ever added or completed, never removed.
type Bucket struct {
	Key int64

	mu      sync.RWMutex
	entries map[string]ProbeResult
}

func newBucket(key int64) *Bucket {
	return &Bucket{
		Key:     key,
		entries: make(map[string]ProbeResult),
	}
}

func (b *Bucket) add(r ProbeResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[r.Key()] = r
}

// addReply stores a reply, completing the send record when one exists
func (b *Bucket) addReply(r ProbeResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := r.Key()
	r.HasLatency = false
	r.LatencyNs = 0
	if req, ok := b.entries[key]; ok {
		r.SendTimeNs = req.SendTimeNs
		latency := r.RecvTimeNs - r.SendTimeNs
		if latency >= 0 {
			r.LatencyNs = latency
			r.HasLatency = true
		} else {
			log.Tracef("negative latency %dns for %s, dropping measurement", latency, key)
		}
	}
	b.entries[key] = r
}

func (b *Bucket) updateSendTimestamp(key string, ns int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.entries[key]
	if !ok {
		return false
	}
	r.SendTimeNs = ns
	if r.Received && r.RecvTimeNs != 0 {
		// the reply beat the transmit timestamp
		r.HasLatency = false
		r.LatencyNs = 0
		if latency := r.RecvTimeNs - ns; latency >= 0 {
			r.LatencyNs = latency
			r.HasLatency = true
		}
	}
	b.entries[key] = r
	return true
}

// Len returns the number of probes in the bucket
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Get returns the probe stored under a composite key
func (b *Bucket) Get(key string) (ProbeResult, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.entries[key]
	return r, ok
}

// Entries returns a copy of every probe in the bucket
func (b *Bucket) Entries() []ProbeResult {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ProbeResult, 0, len(b.entries))
	for _, r := range b.entries {
		out = append(out, r)
	}
	return out
}

func (b *Bucket) clone() *Bucket {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c := newBucket(b.Key)
	for k, r := range b.entries {
		c.entries[k] = r
	}
	return c
}
