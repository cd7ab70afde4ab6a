package config

import (
	"fmt"
	"os"
)

// SocketPath returns the default control-socket path (§6.2, §6.3), honoring
// a Config override when set.
func SocketPath(cfg *Config) string {
	if cfg != nil && cfg.SocketPath != "" {
		return cfg.SocketPath
	}
	return fmt.Sprintf("%s/termd-%s.sock", os.TempDir(), currentUser())
}

// TrafficLogPath returns the default PTY traffic log path for a pane
// (§6.3), used when the `pty-log-on` IPC command is given no explicit
// path.
func TrafficLogPath(paneID string) string {
	return fmt.Sprintf("%s/termd-ptylog-%s.jsonl", os.TempDir(), paneID)
}

// CaptureFilePath returns the default debug-capture hex dump path for a
// pane, used when the `debug-capture` IPC command is given no explicit
// path.
func CaptureFilePath(paneID string) string {
	return fmt.Sprintf("%s/termd-capture-%s.hex", os.TempDir(), paneID)
}

// DebugLogPath returns the default dlog file path (§6.3).
func DebugLogPath() string {
	return fmt.Sprintf("%s/termd-%s.dlog", os.TempDir(), currentUser())
}

// ScreenshotPath returns the default PNG screenshot path for a pane, used
// when the `screenshot` IPC command is given no explicit path.
func ScreenshotPath(paneID string) string {
	return fmt.Sprintf("%s/termd-screenshot-%s.png", os.TempDir(), paneID)
}
