package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paneserver/termd/internal/config"
	"github.com/paneserver/termd/internal/daemon"
	"github.com/paneserver/termd/internal/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// newDaemonCmd is the hidden re-exec target ForkStart launches in the
// background; it runs the identical server loop as `serve`.
func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "_daemon",
		Short:  "Run as a background daemon (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.Init("info", config.DebugLogPath()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	ctx, cancel := daemon.NotifyContext(context.Background())
	defer cancel()

	stopWatch, err := config.Watch(func(*config.Config) {
		logging.Info("config reloaded; restart termd to apply listen_addr/socket_path changes")
	}, func(err error) {
		logging.Warn("config watch error", "err", err)
	})
	if err == nil {
		defer stopWatch()
	}

	return d.Run(ctx)
}
