package daemon

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/paneserver/termd/internal/config"
)

// ForkStart re-execs the current binary with the hidden `_daemon`
// subcommand, redirects its stdio to /dev/null, and waits for the control
// socket to appear before returning — the background-start half of
// `termd start` (§10.4), grounded on
// `ekain-fr-h2/internal/daemon.ForkDaemon`'s re-exec-and-poll-for-socket
// shape.
func ForkStart(cfg *config.Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("daemon: find executable: %w", err)
	}

	cmd := exec.Command(exe, "_daemon")

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("daemon: open /dev/null: %w", err)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = detachedSysProcAttr()

	if err := cmd.Start(); err != nil {
		devNull.Close()
		return fmt.Errorf("daemon: start background process: %w", err)
	}

	go func() {
		cmd.Wait()
		devNull.Close()
	}()

	sockPath := config.SocketPath(cfg)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if conn, err := net.DialTimeout("unix", sockPath, 200*time.Millisecond); err == nil {
			conn.Close()
			return nil
		}
	}

	return fmt.Errorf("daemon: server did not start (socket %s not found)", sockPath)
}
