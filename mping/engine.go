// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package mping is a continuous ICMP echo engine probing many targets at a
// fixed rate and reporting loss and latency per target every second.
package mping

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DataDog/datadog-mping/bucket"
	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/packets"
	"github.com/DataDog/datadog-mping/result"
)

// Engine runs the sender, receiver and reporter loops of a ping session
// over one shared store
type Engine struct {
	targets []netip.Addr
	cfg     Config
	store   *bucket.Store

	printStats bool
	out        chan<- result.TargetStats
	hostnames  map[string]string
	session    *result.Session

	sink   packets.Sink
	source packets.Source
	clock  packets.Clock
}

// Option configures an Engine
type Option func(*Engine)

// WithStatsLog logs one line per target and window at info level
func WithStatsLog(enabled bool) Option {
	return func(e *Engine) {
		e.printStats = enabled
	}
}

// WithOutput sends the stats of every target and window to out. The engine
// never closes out.
func WithOutput(out chan<- result.TargetStats) Option {
	return func(e *Engine) {
		e.out = out
	}
}

// WithHostnames attaches a hostname, keyed by target address, to the stats
func WithHostnames(hostnames map[string]string) Option {
	return func(e *Engine) {
		e.hostnames = hostnames
	}
}

// WithSession tags the stats with the session run id; the session clock is
// filled in once the socket is open
func WithSession(s *result.Session) Option {
	return func(e *Engine) {
		e.session = s
	}
}

// WithTransport replaces the raw socket. The engine does not close handles
// it did not open. A nil clock means the wall clock.
func WithTransport(sink packets.Sink, source packets.Source, clock packets.Clock) Option {
	return func(e *Engine) {
		e.sink = sink
		e.source = source
		e.clock = clock
	}
}

// New validates cfg and targets and returns an engine ready to Run
func New(targets []netip.Addr, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, &common.ConfigError{Field: "targets", Reason: "no target given"}
	}
	for _, t := range targets {
		if !t.Is4() {
			return nil, &common.ConfigError{Field: "targets", Reason: fmt.Sprintf("%s is not an IPv4 address", t)}
		}
	}

	e := &Engine{
		targets: targets,
		cfg:     cfg,
		store:   bucket.NewStore(bucket.WithMaxBuckets(cfg.MaxBuckets)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Store returns the store shared by the loops
func (e *Engine) Store() *bucket.Store {
	return e.store
}

// Run pings until ctx is canceled, Count probes were sent to every target,
// or a socket operation fails. Only socket failures are returned.
func (e *Engine) Run(ctx context.Context) error {
	sink, source, clock := e.sink, e.source, e.clock
	if sink == nil || source == nil {
		sock, err := packets.NewICMPSocket(packets.SocketConfig{
			TTL:          e.cfg.TTL,
			TOS:          e.cfg.TOS,
			Ident:        e.cfg.Ident,
			WriteTimeout: e.cfg.Timeout,
		})
		if err != nil {
			return err
		}
		defer sock.Close()
		clock = packets.EnableTimestamping(sock)

		dup, err := sock.Dup()
		if err != nil {
			return err
		}
		defer dup.Close()
		sink, source = sock, dup
	}
	if clock == nil {
		clock = packets.NewWallClock()
	}

	p, err := newPayloads(e.cfg.PayloadLen)
	if err != nil {
		return err
	}

	runID := ""
	if e.session != nil {
		e.session.Clock = clock.Name()
		runID = e.session.RunID
	}
	log.Debugf("pinging %d targets at %d pps (rate for all: %t) with %s clock", len(e.targets), e.cfg.Rate, e.cfg.RateForAll, clock.Name())

	g, gctx := errgroup.WithContext(ctx)
	// the sender returning ends the session; the reporter flushes once the
	// receiver is done too
	loopCtx, cancel := context.WithCancel(gctx)
	defer cancel()
	recvCtx, recvDone := context.WithCancel(gctx)
	defer recvDone()

	snd := newSender(e.cfg, e.targets, e.store, sink, clock, p)
	rcv := newReceiver(e.cfg, e.store, source, clock, p)
	rep := &reporter{
		delay:      e.cfg.Delay,
		store:      e.store,
		printStats: e.printStats,
		out:        e.out,
		hostnames:  e.hostnames,
		runID:      runID,
		now:        time.Now,
	}

	g.Go(func() error {
		defer cancel()
		return snd.run(loopCtx)
	})
	g.Go(func() error {
		defer recvDone()
		return rcv.run(loopCtx)
	})
	g.Go(func() error {
		return rep.run(recvCtx, gctx)
	})
	return g.Wait()
}

// Ping runs a session over a raw ICMP socket. printStats logs every window;
// out, when not nil, receives the stats of every target and window.
func Ping(ctx context.Context, targets []netip.Addr, cfg Config, printStats bool, out chan<- result.TargetStats) error {
	e, err := New(targets, cfg, WithStatsLog(printStats), WithOutput(out))
	if err != nil {
		return err
	}
	return e.Run(ctx)
}
