// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

//go:build e2etest && linux

package e2etests

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netns"

	"github.com/DataDog/datadog-mping/result"
	"github.com/DataDog/datadog-mping/testutils"
)

const (
	localhostTarget = "127.0.0.1"
	numProbes       = 5
)

type binary struct {
	name         string
	pkg          string
	once         sync.Once
	path         string
	needsCleanup bool
}

var (
	cliBinary    = &binary{name: "datadog-mping", pkg: "."}
	serverBinary = &binary{name: "datadog-mping-server", pkg: "./cmd/mping-server"}
)

// get returns the path to the binary, building it if necessary
func (b *binary) get(t *testing.T) string {
	b.once.Do(func() {
		projectRoot := filepath.Join("..")

		// check for pre-built binary (i.e. when running in CI)
		preBuilt := filepath.Join(projectRoot, b.name)
		if _, err := os.Stat(preBuilt); err == nil {
			t.Logf("using pre-built binary: %s", b.name)
			b.path = preBuilt
			return
		}

		t.Logf("running command: go build -o %s %s", b.name, b.pkg)
		buildCmd := exec.Command("go", "build", "-o", b.name, b.pkg)
		buildCmd.Dir = projectRoot
		out, err := buildCmd.CombinedOutput()
		if err != nil {
			t.Fatalf("Failed to build %s: %v\nOutput: %s", b.name, err, string(out))
		}
		b.path = filepath.Join(projectRoot, b.name)
		b.needsCleanup = true
	})
	if b.path == "" {
		t.Fatalf("%s binary unavailable", b.name)
	}
	return b.path
}

func (b *binary) cleanup() {
	if b.needsCleanup && b.path != "" {
		if err := os.Remove(b.path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to remove binary %s: %v\n", b.path, err)
		}
	}
}

func TestMain(m *testing.M) {
	exitCode := m.Run()

	cliBinary.cleanup()
	cleanupHTTPServer()
	serverBinary.cleanup()

	os.Exit(exitCode)
}

func requireRoot(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("raw ICMP sockets need root")
	}
}

// newLoopbackNS returns a namespace with only loopback up, closed at the
// end of the test
func newLoopbackNS(t *testing.T) netns.NsHandle {
	ns, err := testutils.NewLoopbackNS()
	require.NoError(t, err)
	t.Cleanup(func() { ns.Close() })
	return ns
}

// sumStats folds the windows of every target into one record per target
func sumStats(stats []result.TargetStats) map[string]result.TargetStats {
	totals := make(map[string]result.TargetStats)
	for _, s := range stats {
		total := totals[s.Target]
		total.Target = s.Target
		total.Sent += s.Sent
		total.Received += s.Received
		total.Corrupted += s.Corrupted
		if s.MaxLatency > total.MaxLatency {
			total.MaxLatency = s.MaxLatency
		}
		totals[s.Target] = total
	}
	for target, total := range totals {
		total.Normalize()
		totals[target] = total
	}
	return totals
}
