// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package mping

import (
	"context"
	"errors"
	"time"

	"github.com/DataDog/datadog-mping/bucket"
	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/packets"
)

// maxDatagramLen fits the largest IPv4 datagram
const maxDatagramLen = 65535

// receiver reads echo replies and completes the matching probe records
type receiver struct {
	cfg      Config
	store    *bucket.Store
	source   packets.Source
	clock    packets.Clock
	payloads payloads
	parser   *packets.EchoParser
	buf      []byte
}

func newReceiver(cfg Config, store *bucket.Store, source packets.Source, clock packets.Clock, p payloads) *receiver {
	return &receiver{
		cfg:      cfg,
		store:    store,
		source:   source,
		clock:    clock,
		payloads: p,
		parser:   packets.NewEchoParser(),
		buf:      make([]byte, maxDatagramLen),
	}
}

// run reads until ctx is done or a read fails with anything but a timeout
func (r *receiver) run(ctx context.Context) error {
	for {
		err := r.readOne()
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			continue
		}
		var noPkt *common.ReceiveProbeNoPktError
		if errors.As(err, &noPkt) {
			continue
		}
		return &common.SocketError{Op: "receive", Err: err}
	}
}

// readOne reads a single datagram and records it when it is one of our
// replies. Malformed or foreign packets are not errors.
func (r *receiver) readOne() error {
	if err := r.source.SetReadDeadline(time.Now().Add(r.cfg.Timeout)); err != nil {
		return err
	}
	n, rxTime, err := r.source.Read(r.buf)
	if err != nil {
		return err
	}
	if rxTime.IsZero() {
		rxTime = r.clock.Now()
	}

	reply, err := r.parser.Parse(r.buf[:n])
	if err != nil {
		log.Tracef("discarding packet: %s", err)
		return nil
	}
	r.handle(reply, rxTime)
	return nil
}

func (r *receiver) handle(reply *packets.EchoReply, rxTime time.Time) {
	if !reply.IsEchoReply() {
		log.Tracef("discarding %s from %s", reply.TypeCode, reply.Src)
		return
	}
	if reply.ID != r.cfg.Ident {
		log.Tracef("discarding echo reply from %s with ident %d", reply.Src, reply.ID)
		return
	}
	sendNs, ok := readTimestamp(reply.Payload)
	if !ok {
		log.Tracef("discarding echo reply from %s seq=%d: bad timestamp", reply.Src, reply.Seq)
		return
	}

	target := reply.Src.String()
	corrupted := !r.payloads.matches(reply.Seq, reply.Payload)
	if corrupted {
		log.Warnf("bitflip detected! seq=%d target=%s", reply.Seq, target)
	}
	r.store.AddReply(bucket.KeyFor(sendNs), bucket.ProbeResult{
		RecvTimeNs: rxTime.UnixNano(),
		Sequence:   reply.Seq,
		Target:     target,
		Received:   true,
		Corrupted:  corrupted,
	})
	log.Tracef("received echo reply from %s seq=%d", target, reply.Seq)
}
