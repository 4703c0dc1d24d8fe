// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/time/rate"

	"github.com/DataDog/datadog-mping/bucket"
	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/packets"
)

// sender transmits echo requests to every target and records a provisional
// result for each of them
type sender struct {
	cfg      Config
	targets  []netip.Addr
	names    []string
	store    *bucket.Store
	sink     packets.Sink
	clock    packets.Clock
	payloads payloads
	limiter  *rate.Limiter
	encoder  *packets.EchoEncoder
	scratch  []byte
	seq      uint16
}

func newSender(cfg Config, targets []netip.Addr, store *bucket.Store, sink packets.Sink, clock packets.Clock, p payloads) *sender {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	return &sender{
		cfg:      cfg,
		targets:  targets,
		names:    names,
		store:    store,
		sink:     sink,
		clock:    clock,
		payloads: p,
		// the bucket starts full: one second worth of tokens
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate),
		encoder: packets.NewEchoEncoder(cfg.PayloadLen),
		scratch: make([]byte, cfg.PayloadLen),
		seq:     1,
	}
}

// run sends until ctx is done, a send fails, or Count passes are complete.
// After the last pass it waits Delay so in-flight replies can land.
func (s *sender) run(ctx context.Context) error {
	passes := 0
	for {
		if !s.cfg.RateForAll {
			if !s.wait(ctx) {
				return nil
			}
		}
		for i, target := range s.targets {
			if s.cfg.RateForAll {
				if !s.wait(ctx) {
					return nil
				}
			}
			if err := s.send(target, s.names[i]); err != nil {
				return err
			}
		}
		s.seq++
		passes++

		if s.cfg.Count > 0 && passes >= s.cfg.Count {
			log.Debugf("sent %d probes to each of %d targets, waiting %s for replies", passes, len(s.targets), s.cfg.Delay)
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.Delay):
			}
			return nil
		}
	}
}

// wait takes one token. It reports false once ctx is done; the limiter
// fails early when the ctx deadline would pass before a token is available.
func (s *sender) wait(ctx context.Context) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		<-ctx.Done()
		return false
	}
	return true
}

func (s *sender) send(target netip.Addr, name string) error {
	seq := s.seq
	sendNs := s.clock.Now().UnixNano()

	copy(s.scratch, s.payloads.forSeq(seq))
	putTimestamp(s.scratch, sendNs)
	buf, err := s.encoder.Encode(s.cfg.Ident, seq, s.scratch)
	if err != nil {
		return err
	}

	// the record must exist before the reply can possibly arrive
	key := bucket.KeyFor(sendNs)
	s.store.Add(key, bucket.ProbeResult{
		SendTimeNs: sendNs,
		Sequence:   seq,
		Target:     name,
	})

	if err := s.sink.WriteTo(buf, target); err != nil {
		return &common.SocketError{Op: "send", Err: fmt.Errorf("echo request to %s: %w", name, err)}
	}
	log.Tracef("sent echo request to %s seq=%d", name, seq)

	if s.clock.Precise() {
		if ts, ok := s.clock.TxTimestamp(); ok {
			s.store.UpdateSendTimestamp(key, name, seq, ts.UnixNano())
		}
	}
	return nil
}
