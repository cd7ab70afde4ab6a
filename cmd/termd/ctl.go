package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/paneserver/termd/internal/config"
)

// withIPC builds a RunE that loads the config and forwards the cobra args,
// joined after the given command name, as one control-socket command line.
func withIPC(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		parts := append([]string{name}, args...)
		return sendIPC(cfg, strings.Join(parts, " "))
	}
}

func newPanesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "panes",
		Short: "List panes",
		RunE:  withIPC("panes"),
	}
}

func newWindowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List windows",
		RunE:  withIPC("windows"),
	}
}

func newLayoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "List layout templates in use",
		RunE:  withIPC("layouts"),
	}
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <pane_id> <text>",
		Short: "Send literal text into a pane's stdin",
		Args:  cobra.MinimumNArgs(2),
		RunE:  withIPC("send"),
	}
}

func newDumpCmd() *cobra.Command {
	var raw bool
	var jsonDetail string
	cmd := &cobra.Command{
		Use:   "dump <pane_id>",
		Short: "Dump a pane's current screen contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case jsonDetail != "":
				return withIPC("dump-json")(cmd, append(args, jsonDetail))
			case raw:
				return withIPC("dump-raw")(cmd, args)
			default:
				return withIPC("dump")(cmd, args)
			}
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "dump raw cell attributes instead of plain text")
	cmd.Flags().StringVar(&jsonDetail, "json", "", "dump as JSON with the given detail level (text|styled|full)")
	return cmd
}

func newScreenshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "screenshot <pane_id> [path]",
		Short: "Render a pane's viewport to a PNG file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  withIPC("screenshot"),
	}
}

func newClipboardSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clipboard-set <c|p> <text>",
		Short: "Set the host clipboard mirror",
		Args:  cobra.ExactArgs(2),
		RunE:  withIPC("clipboard-set"),
	}
}

func newClipboardGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clipboard-get <kind>",
		Short: "Read the host clipboard mirror",
		Args:  cobra.ExactArgs(1),
		RunE:  withIPC("clipboard-get"),
	}
}

func newDebugLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-log [spec]",
		Short: "Show or set the debug-log category spec (e.g. vt,pty)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  withIPC("debug-log"),
	}
}
