// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/mping"
	"github.com/DataDog/datadog-mping/result"
)

type args struct {
	PingParams
	json  bool
	quiet bool
}

var Args args

var rootCmd = &cobra.Command{
	Use:   "datadog-mping [targets...]",
	Short: "Continuous multi-target ICMP latency and loss monitor",
	Long: `Sends ICMP echo requests to every target at a fixed rate and reports
sent, received, loss rate and latency per target for every second.
Targets are hostnames or IPv4 addresses, possibly comma separated.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Args.SetupLogging(); err != nil {
			return err
		}

		run, err := PrepareRun(cmd.Context(), Args.PingParams, args)
		if err != nil {
			return err
		}

		opts := []mping.Option{mping.WithStatsLog(!Args.quiet)}
		var out chan result.TargetStats
		done := make(chan struct{})
		if Args.json {
			out = make(chan result.TargetStats, len(run.Targets))
			opts = append(opts, mping.WithOutput(out))
			go func() {
				defer close(done)
				writeStats(cmd.OutOrStdout(), out, isTerminal(os.Stdout))
			}()
		} else {
			close(done)
		}

		engine, err := run.Engine(opts...)
		if err != nil {
			return err
		}
		log.Debugf("session %s started", run.Session.RunID)
		err = engine.Run(cmd.Context())
		if out != nil {
			close(out)
		}
		<-done
		return err
	},
}

// writeStats prints one JSON record per stats until in is closed. Records
// are indented for terminals and compact otherwise.
func writeStats(w io.Writer, in <-chan result.TargetStats, indent bool) {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	for stats := range in {
		if err := enc.Encode(stats); err != nil {
			log.Debugf("failed to write stats: %s", err)
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Execute runs the root command until it completes or the process is
// interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		perr := common.ClassifyError(err)
		fmt.Fprintf(os.Stderr, "Error: [%s] %s\n", perr.Code, perr.Message)
		stop()
		os.Exit(1)
	}
}

func init() {
	AddPingFlags(rootCmd.Flags(), &Args.PingParams)
	rootCmd.Flags().BoolVarP(&Args.json, "json", "", false, "Print the stats of every target and window as JSON on stdout")
	rootCmd.Flags().BoolVarP(&Args.quiet, "quiet", "", false, "Do not log the stats lines")
}
