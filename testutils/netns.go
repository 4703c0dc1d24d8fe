// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

//go:build test || e2etest

// Package testutils holds network namespace helpers for tests that open raw
// sockets. They need root.
package testutils

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// WithNS executes the given function in the given network namespace, and then
// switches back to the previous namespace. Sockets opened by fn stay in ns
// after it returns.
func WithNS(ns netns.NsHandle, fn func() error) error {
	if ns == netns.None() {
		return fn()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prevNS, err := netns.Get()
	if err != nil {
		return err
	}
	defer prevNS.Close()

	if ns.Equal(prevNS) {
		return fn()
	}

	if err := netns.Set(ns); err != nil {
		return err
	}

	fnErr := fn()
	nsErr := netns.Set(prevNS)
	if fnErr != nil {
		return fnErr
	}
	return nsErr
}

// NewLoopbackNS creates a network namespace whose only interface is an
// enabled loopback, so every 127.0.0.0/8 target answers and nothing else
// does. The caller closes the handle.
func NewLoopbackNS() (netns.NsHandle, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prevNS, err := netns.Get()
	if err != nil {
		return netns.None(), err
	}
	defer prevNS.Close()

	// netns.New switches the calling thread into the new namespace
	ns, err := netns.New()
	if err != nil {
		return netns.None(), fmt.Errorf("create namespace: %w", err)
	}
	setupErr := enableLoopback()
	if err := netns.Set(prevNS); err != nil {
		ns.Close()
		return netns.None(), fmt.Errorf("restore namespace: %w", err)
	}
	if setupErr != nil {
		ns.Close()
		return netns.None(), setupErr
	}
	return ns, nil
}

func enableLoopback() error {
	lo, err := netlink.LinkByName("lo")
	if err != nil {
		return fmt.Errorf("find loopback: %w", err)
	}
	if err := netlink.LinkSetUp(lo); err != nil {
		return fmt.Errorf("enable loopback: %w", err)
	}
	return nil
}
