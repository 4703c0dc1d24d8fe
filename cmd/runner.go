// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package cmd

import (
	"context"
	"net/netip"

	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/mping"
	"github.com/DataDog/datadog-mping/publicip"
	"github.com/DataDog/datadog-mping/result"
	"github.com/DataDog/datadog-mping/reversedns"
)

// PingRun is a resolved ping session ready to start
type PingRun struct {
	Targets   []netip.Addr
	Config    mping.Config
	Session   *result.Session
	Hostnames map[string]string
}

var (
	resolveTargets    = common.ResolveTargets
	sourceAddrForHost = common.SourceAddrForHost
	hostnames         = reversedns.Hostnames
	publicIP          = func(ctx context.Context) (netip.Addr, error) {
		return publicip.NewPublicIPFetcher().GetIP(ctx)
	}
)

// PrepareRun validates params, resolves hosts and describes the session.
// Source addresses, reverse DNS and the public IP are best effort.
func PrepareRun(ctx context.Context, params PingParams, hosts []string) (*PingRun, error) {
	cfg, err := params.Config()
	if err != nil {
		return nil, err
	}
	targets, err := resolveTargets(hosts)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	session := result.NewSession(names, cfg.Ident)

	session.SourceAddrs = make(map[string]string, len(targets))
	for _, t := range targets {
		src, err := sourceAddrForHost(t)
		if err != nil {
			log.Debugf("no source address for %s: %s", t, err)
			continue
		}
		session.SourceAddrs[t.String()] = src.String()
	}

	if params.SourcePublicIP {
		ip, err := publicIP(ctx)
		if err != nil {
			log.Warnf("failed to fetch public IP: %s", err)
		} else {
			session.PublicIP = ip.String()
		}
	}

	run := &PingRun{
		Targets: targets,
		Config:  cfg,
		Session: session,
	}
	if params.ReverseDns {
		run.Hostnames = hostnames(targets)
	}
	return run, nil
}

// Engine builds the engine of the run; opts are applied after the session
// options
func (r *PingRun) Engine(opts ...mping.Option) (*mping.Engine, error) {
	all := []mping.Option{
		mping.WithSession(r.Session),
		mping.WithHostnames(r.Hostnames),
	}
	return mping.New(r.Targets, r.Config, append(all, opts...)...)
}
