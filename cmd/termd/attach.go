package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/paneserver/termd/internal/config"
)

// newAttachCmd opens an interactive REPL against the control socket: since
// termd is headless, there is no local terminal surface to proxy raw PTY
// bytes into the way a full multiplexer client would (that role belongs to
// the WebSocket delta-sync protocol); attach instead gives an operator a
// persistent line-oriented session against the same command set `status`,
// `panes`, and friends use one-shot, grounded on
// `ekain-fr-h2/internal/cmd/attach.go`'s dial-then-proxy shape.
func newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Open an interactive control-socket session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runAttachREPL(cfg)
		},
	}
}

func runAttachREPL(cfg *config.Config) error {
	sockPath := config.SocketPath(cfg)
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", sockPath, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		io.Copy(os.Stdout, conn)
		close(done)
	}()

	fmt.Fprintln(os.Stderr, "attached; type a command (e.g. status, panes, help) and press enter, ctrl-d to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(conn, scanner.Text()); err != nil {
			return err
		}
	}

	conn.(*net.UnixConn).CloseWrite()
	<-done
	return nil
}
