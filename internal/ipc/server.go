// Package ipc implements the Unix domain socket command server (§6.2): a
// line-delimited text protocol for out-of-band control of a running server
// (status queries, sending keystrokes into a pane, clipboard mirroring,
// debug logging toggles) separate from the WebSocket delta-sync protocol in
// internal/transport.
package ipc

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/paneserver/termd/internal/config"
	"github.com/paneserver/termd/internal/session"
)

var commandNames = []string{
	"ping", "status", "quit", "help", "shell",
	"dump", "dump-raw", "dump-json", "screenshot", "debug-capture",
	"pty-log", "pty-log-on", "pty-log-off",
	"ttysize", "layouts", "panes", "windows",
	"send", "clipboard-set", "clipboard-get", "debug-log",
}

// Server serves the control-socket command protocol over a Unix domain
// socket (§6.2).
type Server struct {
	sess       *session.Session
	socketPath string
	listener   net.Listener
	startTime  time.Time

	mu            sync.Mutex
	hostClipboard map[byte][]byte
	debugLogSpec  string

	// OnClipboardSet is invoked after a clipboard-set command stores new
	// content, so the caller can mirror it out to connected WebSocket
	// clients (§4.5, §6.1). Optional.
	OnClipboardSet func(kind byte, data []byte)

	// OnQuit is invoked after a `quit` command's OK response has been
	// sent. Optional.
	OnQuit func()
}

// Listen opens the control socket at socketPath, refusing to start if a
// live server is already listening there (mirrors the PID-file
// single-server-per-user rule in §6.3, applied to the socket itself).
func Listen(sess *session.Session, socketPath string) (*Server, error) {
	if _, err := os.Stat(socketPath); err == nil {
		if conn, dialErr := net.DialTimeout("unix", socketPath, 500*time.Millisecond); dialErr == nil {
			conn.Close()
			return nil, fmt.Errorf("ipc: control socket %s already in use", socketPath)
		}
		os.Remove(socketPath)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen: %w", err)
	}

	return &Server{
		sess:          sess,
		socketPath:    socketPath,
		listener:      ln,
		startTime:     time.Now(),
		hostClipboard: make(map[byte][]byte),
	}, nil
}

// SetDebugLogDefault seeds the debug-log category spec reported by
// `debug-log` with no arguments, typically from the loaded Config's
// DebugLogDefault (§10.3).
func (s *Server) SetDebugLogDefault(spec string) {
	s.mu.Lock()
	s.debugLogSpec = spec
	s.mu.Unlock()
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	os.Remove(s.socketPath)
	return err
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil || len(args) == 0 {
			writeErr(conn, "malformed command")
			continue
		}
		s.dispatch(conn, args[0], args[1:])
	}
}

func writeOK(w io.Writer, msg string) {
	fmt.Fprintf(w, "OK: %s\n", msg)
}

func writeErr(w io.Writer, msg string) {
	fmt.Fprintf(w, "ERR: %s\n", msg)
}

func (s *Server) dispatch(conn net.Conn, cmd string, args []string) {
	switch cmd {
	case "ping":
		writeOK(conn, "pong")
	case "status":
		s.handleStatus(conn)
	case "quit":
		writeOK(conn, "bye")
		if s.OnQuit != nil {
			go s.OnQuit()
		}
	case "help":
		writeOK(conn, "commands")
		fmt.Fprintln(conn, strings.Join(commandNames, "\n"))
	case "shell":
		writeOK(conn, loginShellPath())
	case "dump":
		s.handleDump(conn, args, false)
	case "dump-raw":
		s.handleDump(conn, args, true)
	case "dump-json":
		s.handleDumpJSON(conn, args)
	case "screenshot":
		s.handleScreenshot(conn, args)
	case "debug-capture":
		s.handleDebugCapture(conn, args)
	case "pty-log":
		s.handlePTYLogStatus(conn, args)
	case "pty-log-on":
		s.handlePTYLogOn(conn, args)
	case "pty-log-off":
		s.handlePTYLogOff(conn, args)
	case "ttysize":
		s.handleTTYSize(conn, args)
	case "layouts":
		s.handleLayouts(conn)
	case "panes":
		s.handlePanes(conn)
	case "windows":
		s.handleWindows(conn)
	case "send":
		s.handleSend(conn, args)
	case "clipboard-set":
		s.handleClipboardSet(conn, args)
	case "clipboard-get":
		s.handleClipboardGet(conn, args)
	case "debug-log":
		s.handleDebugLog(conn, args)
	default:
		writeErr(conn, "unknown command: "+cmd)
	}
}

func loginShellPath() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

func (s *Server) handleStatus(conn net.Conn) {
	panes := s.sess.Panes()
	windows := s.sess.Windows()
	writeOK(conn, fmt.Sprintf("uptime=%s panes=%d windows=%d clients=%d",
		time.Since(s.startTime).Round(time.Second), len(panes), len(windows), s.sess.ClientCount()))
}

func (s *Server) handlePanes(conn net.Conn) {
	panes := s.sess.Panes()
	writeOK(conn, fmt.Sprintf("%d pane(s)", len(panes)))
	for _, p := range panes {
		cols, rows := p.Size()
		fmt.Fprintf(conn, "%s %dx%d pid=%d alive=%t\n", p.ID, cols, rows, p.PID(), p.IsAlive())
	}
}

func (s *Server) handleWindows(conn net.Conn) {
	windows := s.sess.Windows()
	writeOK(conn, fmt.Sprintf("%d window(s)", len(windows)))
	for _, w := range windows {
		fmt.Fprintf(conn, "%s layout=%s panes=%s\n", w.ID, w.LayoutID, strings.Join(w.PaneIDs, ","))
	}
}

func (s *Server) handleLayouts(conn net.Conn) {
	seen := make(map[string]bool)
	var layouts []string
	for _, w := range s.sess.Windows() {
		if w.LayoutID != "" && !seen[w.LayoutID] {
			seen[w.LayoutID] = true
			layouts = append(layouts, w.LayoutID)
		}
	}
	sort.Strings(layouts)
	writeOK(conn, fmt.Sprintf("%d layout(s) in use", len(layouts)))
	for _, id := range layouts {
		fmt.Fprintln(conn, id)
	}
}

func (s *Server) handleDump(conn net.Conn, args []string, raw bool) {
	if len(args) < 1 {
		writeErr(conn, "usage: dump[-raw] <pane_id>")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	writeOK(conn, "dump follows")
	if raw {
		fmt.Fprintln(conn, p.DumpRaw())
	} else {
		fmt.Fprintln(conn, p.DumpText())
	}
}

func (s *Server) handleDumpJSON(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: dump-json <pane_id> [text|styled|full]")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	detail := "text"
	if len(args) >= 2 {
		detail = args[1]
	}
	data, err := p.DumpJSON(detail)
	if err != nil {
		writeErr(conn, "encode snapshot: "+err.Error())
		return
	}
	writeOK(conn, "dump follows")
	conn.Write(data)
	fmt.Fprintln(conn)
}

func (s *Server) handleScreenshot(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: screenshot <pane_id> [path]")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	path := args[0]
	if len(args) >= 2 {
		path = args[1]
	} else {
		path = config.ScreenshotPath(args[0])
	}
	png, err := p.Screenshot()
	if err != nil {
		writeErr(conn, err.Error())
		return
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		writeErr(conn, "write screenshot: "+err.Error())
		return
	}
	writeOK(conn, "wrote "+path)
}

func (s *Server) handleDebugCapture(conn net.Conn, args []string) {
	if len(args) < 2 {
		writeErr(conn, "usage: debug-capture <pane_id> <on|off> [path]")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	switch args[1] {
	case "on":
		path := captureFilePath(args, args[0])
		if err := p.SetCaptureFile(path); err != nil {
			writeErr(conn, err.Error())
			return
		}
		writeOK(conn, "capturing to "+path)
	case "off":
		p.StopCapture()
		writeOK(conn, "capture stopped")
	default:
		writeErr(conn, "usage: debug-capture <pane_id> <on|off> [path]")
	}
}

func captureFilePath(args []string, paneID string) string {
	if len(args) >= 3 {
		return args[2]
	}
	return config.CaptureFilePath(paneID)
}

func (s *Server) handlePTYLogStatus(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: pty-log <pane_id>")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	writeOK(conn, fmt.Sprintf("logging=%t", p.TrafficLogging()))
}

func (s *Server) handlePTYLogOn(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: pty-log-on <pane_id> [path]")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	path := trafficLogPath(args, args[0])
	if err := p.EnableTrafficLog(path); err != nil {
		writeErr(conn, err.Error())
		return
	}
	writeOK(conn, "logging to "+path)
}

func trafficLogPath(args []string, paneID string) string {
	if len(args) >= 2 {
		return args[1]
	}
	return config.TrafficLogPath(paneID)
}

func (s *Server) handlePTYLogOff(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: pty-log-off <pane_id>")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	p.DisableTrafficLog()
	writeOK(conn, "logging stopped")
}

func (s *Server) handleTTYSize(conn net.Conn, args []string) {
	if len(args) < 1 {
		writeErr(conn, "usage: ttysize <pane_id> [cols rows]")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	if len(args) >= 3 {
		cols, err1 := strconv.Atoi(args[1])
		rows, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil || cols <= 0 || rows <= 0 {
			writeErr(conn, "invalid size")
			return
		}
		p.Resize(cols, rows, 0, 0)
	}
	cols, rows := p.Size()
	writeOK(conn, fmt.Sprintf("%dx%d", cols, rows))
}

func (s *Server) handleSend(conn net.Conn, args []string) {
	if len(args) < 2 {
		writeErr(conn, "usage: send <pane_id> <text>")
		return
	}
	p, ok := s.sess.Pane(args[0])
	if !ok {
		writeErr(conn, "unknown pane: "+args[0])
		return
	}
	text := strings.Join(args[1:], " ")
	if _, err := p.Write([]byte(text)); err != nil {
		writeErr(conn, err.Error())
		return
	}
	writeOK(conn, fmt.Sprintf("sent %d byte(s)", len(text)))
}

func (s *Server) handleDebugLog(conn net.Conn, args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(args) == 0 {
		writeOK(conn, "spec="+s.debugLogSpec)
		return
	}
	s.debugLogSpec = strings.Join(args, " ")
	writeOK(conn, "spec set")
}
