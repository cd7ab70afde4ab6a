package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the root cobra command with every subcommand attached.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "termd",
		Short: "Headless terminal multiplexer server",
		Long:  "termd owns PTY panes and streams their contents to WebSocket clients over a delta-sync protocol, with a Unix-socket control channel for administration.",
	}

	root.AddCommand(
		newServeCmd(),
		newStartCmd(),
		newDaemonCmd(),
		newStopCmd(),
		newStatusCmd(),
		newPanesCmd(),
		newWindowsCmd(),
		newLayoutsCmd(),
		newSendCmd(),
		newDumpCmd(),
		newScreenshotCmd(),
		newClipboardSetCmd(),
		newClipboardGetCmd(),
		newDebugLogCmd(),
		newAttachCmd(),
	)

	return root
}
