// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package bucket

import (
	"container/heap"
	"sync"

	"github.com/DataDog/datadog-mping/log"
)

// bucketHeap orders buckets oldest first
type bucketHeap []*Bucket

func (h bucketHeap) Len() int           { return len(h) }
func (h bucketHeap) Less(i, j int) bool { return h[i].Key < h[j].Key }
func (h bucketHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *bucketHeap) Push(x any) {
	*h = append(*h, x.(*Bucket))
}

func (h *bucketHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return b
}

// Store is the registry of live buckets. Its own lock only guards the index
// and the ordering; entries are mutated under each bucket's lock once the
// store lock has been released.
type Store struct {
	mu         sync.Mutex
	index      map[int64]*Bucket
	order      bucketHeap
	maxBuckets int
	evicted    uint64
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithMaxBuckets caps the number of live buckets. Creating a bucket beyond
// the cap drops the oldest one without reporting it. Zero means unbounded.
func WithMaxBuckets(n int) StoreOption {
	return func(s *Store) {
		s.maxBuckets = n
	}
}

// NewStore returns an empty Store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		index: make(map[int64]*Bucket),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getOrCreate returns the bucket for key, registering a new one in both the
// index and the ordering when needed
func (s *Store) getOrCreate(key int64) *Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.index[key]; ok {
		return b
	}
	if s.maxBuckets > 0 && len(s.index) >= s.maxBuckets {
		oldest := heap.Pop(&s.order).(*Bucket)
		delete(s.index, oldest.Key)
		s.evicted++
		log.Warnf("bucket store full (%d buckets), evicted window %d", s.maxBuckets, oldest.Key)
	}
	b := newBucket(key)
	s.index[key] = b
	heap.Push(&s.order, b)
	return b
}

// Add records a probe in the bucket for key, creating the bucket if needed.
// An existing probe with the same composite key is overwritten.
func (s *Store) Add(key int64, r ProbeResult) {
	s.getOrCreate(key).add(r)
}

// AddReply records a reply. When the matching send record exists its send
// timestamp is copied into the reply and the latency computed; otherwise the
// reply is kept as an orphan without latency.
func (s *Store) AddReply(key int64, r ProbeResult) {
	s.getOrCreate(key).addReply(r)
}

// UpdateSendTimestamp replaces the send timestamp of a recorded probe. It is
// a no-op when the bucket or the probe is gone.
func (s *Store) UpdateSendTimestamp(key int64, target string, seq uint16, ns int64) {
	s.mu.Lock()
	b, ok := s.index[key]
	s.mu.Unlock()
	if !ok {
		return
	}
	if !b.updateSendTimestamp(CompositeKey(target, seq), ns) {
		log.Tracef("no send record for %s in window %d", CompositeKey(target, seq), key)
	}
}

// PopOldest removes and returns the bucket with the lowest key
func (s *Store) PopOldest() (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return nil, false
	}
	b := heap.Pop(&s.order).(*Bucket)
	delete(s.index, b.Key)
	return b, true
}

// PeekOldest returns a snapshot of the bucket with the lowest key without
// removing it
func (s *Store) PeekOldest() (*Bucket, bool) {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return nil, false
	}
	b := s.order[0]
	s.mu.Unlock()
	return b.clone(), true
}

// Len returns the number of live buckets
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Evicted returns how many buckets were dropped by the WithMaxBuckets cap
func (s *Store) Evicted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}
