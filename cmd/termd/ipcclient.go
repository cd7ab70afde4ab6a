package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/paneserver/termd/internal/config"
)

// sendIPC dials the control socket, writes a single command line, and
// streams back every response line until the connection closes or a
// blank read timeout elapses — the same dial-send-read shape used
// throughout the pack's CLI-to-daemon commands, adapted to termd's
// line-delimited `OK:`/`ERR:` protocol instead of a framed binary one.
func sendIPC(cfg *config.Config, line string) error {
	sockPath := config.SocketPath(cfg)

	conn, err := net.DialTimeout("unix", sockPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", sockPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, line); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var status string
	for scanner.Scan() {
		text := scanner.Text()
		if status == "" && (strings.HasPrefix(text, "OK:") || strings.HasPrefix(text, "ERR:")) {
			status = text
		}
		fmt.Println(text)
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	}

	if strings.HasPrefix(status, "ERR:") {
		return fmt.Errorf("%s", strings.TrimPrefix(status, "ERR: "))
	}
	return nil
}
