package pane

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// childEnviron builds the environment for a spawned child (§6.4): it
// starts from the caller-supplied env (or the server's own environment)
// and overrides TERM/TERM_PROGRAM/TERMINFO so
// the child identifies this pane rather than whatever terminal is hosting
// the server process.
func childEnviron(base []string, paneID string) []string {
	if base == nil {
		base = os.Environ()
	}
	env := make([]string, 0, len(base)+3)
	for _, kv := range base {
		if hasPrefix(kv, "TERM=") || hasPrefix(kv, "TERM_PROGRAM=") || hasPrefix(kv, "TERMINFO=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, "TERM=xterm-"+paneID, "TERM_PROGRAM="+paneID)
	if path, ok := terminfoPath(); ok {
		env = append(env, "TERMINFO="+path)
	}
	return env
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// terminfoWellKnownPaths are searched for a compiled terminfo database a
// TERMINFO override should point at; absent any of them, the child falls
// back to whatever the system ships.
var terminfoWellKnownPaths = []string{
	"/usr/share/terminfo",
	"/usr/lib/terminfo",
	"/etc/terminfo",
}

func terminfoPath() (string, bool) {
	for _, p := range terminfoWellKnownPaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// configureMaster enables UTF-8 input processing (IUTF8) on the PTY master
// side of the line discipline, and marks the master fd non-blocking and
// close-on-exec (§6.4). creack/pty already opens the master close-on-exec
// and in non-blocking mode on Linux; configureMaster reasserts both so the
// behavior does not silently depend on that library's defaults, and adds
// the IUTF8 flag it does not set.
func configureMaster(fd uintptr) error {
	term, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	if err != nil {
		return fmt.Errorf("pane: get termios: %w", err)
	}
	term.Iflag |= unix.IUTF8
	if err := unix.IoctlSetTermios(int(fd), unix.TCSETS, term); err != nil {
		return fmt.Errorf("pane: set termios: %w", err)
	}

	if err := unix.SetNonblock(int(fd), true); err != nil {
		return fmt.Errorf("pane: set nonblock: %w", err)
	}
	if _, err := unix.FcntlInt(fd, unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		return fmt.Errorf("pane: set close-on-exec: %w", err)
	}
	return nil
}
