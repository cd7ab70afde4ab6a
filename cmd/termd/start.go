package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paneserver/termd/internal/config"
	"github.com/paneserver/termd/internal/daemon"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the server in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if config.IsLive(config.PIDFilePath()) {
				return fmt.Errorf("termd is already running")
			}
			if err := daemon.ForkStart(cfg); err != nil {
				return err
			}
			fmt.Println("termd started")
			return nil
		},
	}
}
