package ipc

import (
	"encoding/base64"
	"fmt"
	"net"
)

// parseClipboardKind maps the IPC selector letters (§4.5's "c > p > s"
// priority applies to the child's OSC 52 request; this is the host-side
// selector a caller names directly) to the resolved kind byte the pane
// clipboard handshake uses.
func parseClipboardKind(s string) (byte, bool) {
	if len(s) != 1 {
		return 0, false
	}
	switch s[0] {
	case 'c', 'p':
		return s[0], true
	default:
		return 0, false
	}
}

// handleClipboardSet stores host clipboard content for the given selector
// and resolves any pane currently waiting on a GET of that kind, mirroring
// §4.5's SET/GET handshake from the host side. The text argument is taken
// literally (no base64), matching clipboard-get's literal output.
func (s *Server) handleClipboardSet(conn net.Conn, args []string) {
	if len(args) < 2 {
		writeErr(conn, "usage: clipboard-set <c|p> <text>")
		return
	}
	kind, ok := parseClipboardKind(args[0])
	if !ok {
		writeErr(conn, "invalid clipboard selector: "+args[0])
		return
	}
	text := args[1]
	for i := 2; i < len(args); i++ {
		text += " " + args[i]
	}
	data := []byte(text)

	s.mu.Lock()
	s.hostClipboard[kind] = data
	s.mu.Unlock()

	for _, p := range s.sess.Panes() {
		if pendingKind, ok := p.PendingClipboardGet(); ok && pendingKind == kind {
			p.ResolveClipboardGet(kind, data)
		}
	}

	if s.OnClipboardSet != nil {
		s.OnClipboardSet(kind, data)
	}

	writeOK(conn, fmt.Sprintf("stored %d byte(s)", len(data)))
}

// handleClipboardGet returns the last host clipboard content stored for the
// given selector, base64-encoded since the line protocol can't carry
// arbitrary bytes (newlines) safely.
func (s *Server) handleClipboardGet(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: clipboard-get <c|p>")
		return
	}
	kind, ok := parseClipboardKind(args[0])
	if !ok {
		writeErr(conn, "invalid clipboard selector: "+args[0])
		return
	}
	s.mu.Lock()
	data := s.hostClipboard[kind]
	s.mu.Unlock()

	writeOK(conn, fmt.Sprintf("%d byte(s), base64", len(data)))
	fmt.Fprintln(conn, base64.StdEncoding.EncodeToString(data))
}
