// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package main provides the mping HTTP server binary
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DataDog/datadog-mping/cmd"
	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/mping"
	"github.com/DataDog/datadog-mping/result"
	"github.com/DataDog/datadog-mping/server"
)

var (
	addr   string
	params cmd.PingParams
	quiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "datadog-mping-server [targets...]",
	Short: "mping HTTP server",
	Long:  `Pings the targets continuously and serves their latest stats over HTTP (/stats, /session, /health)`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		if err := params.SetupLogging(); err != nil {
			return err
		}

		ctx := c.Context()
		run, err := cmd.PrepareRun(ctx, params, args)
		if err != nil {
			return err
		}

		srv := server.NewServer()
		srv.SetSession(run.Session)

		out := make(chan result.TargetStats, len(run.Targets))
		engine, err := run.Engine(mping.WithOutput(out), mping.WithStatsLog(!quiet))
		if err != nil {
			return err
		}

		log.Infof("Starting mping HTTP server on %s", addr)
		log.Infof("Log level set to: %s", params.LogLevel)
		log.Infof("Example usage: curl http://localhost%s/stats", addr)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Start(gctx, addr)
		})
		g.Go(func() error {
			srv.Consume(gctx, out)
			return nil
		})
		g.Go(func() error {
			// a finished or failed session keeps being served until interrupted
			if err := engine.Run(gctx); err != nil {
				perr := common.ClassifyError(err)
				log.Errorf("ping session failed: [%s] %s", perr.Code, perr.Message)
				srv.SetError(err)
			}
			return nil
		})
		return g.Wait()
	},
}

func init() {
	// Default port 3766 is used for the mping server
	rootCmd.Flags().StringVarP(&addr, "addr", "a", common.DefaultServerAddr, "HTTP server address to listen on")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "", false, "Do not log the stats lines")
	cmd.AddPingFlags(rootCmd.Flags(), &params)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
