package ipc

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paneserver/termd/internal/pane"
	"github.com/paneserver/termd/internal/session"
)

func newTestPane(t *testing.T) *pane.Pane {
	t.Helper()
	p, err := pane.New(pane.Options{
		Cols:    40,
		Rows:    10,
		Command: []string{"cat"},
		Env:     []string{"TERM=xterm-256color"},
	})
	if err != nil {
		t.Fatalf("pane.New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	sess := session.New()
	sockPath := filepath.Join(t.TempDir(), "termd.sock")
	srv, err := Listen(sess, sockPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, sess
}

func dialLine(t *testing.T, srv *Server, line string) []string {
	t.Helper()
	conn, err := net.DialTimeout("unix", srv.socketPath, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	var lines []string
	if scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func dialLines(t *testing.T, srv *Server, line string, n int) []string {
	t.Helper()
	conn, err := net.DialTimeout("unix", srv.socketPath, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	var lines []string
	for len(lines) < n && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)
	lines := dialLine(t, srv, "ping")
	if len(lines) != 1 || lines[0] != "OK: pong" {
		t.Errorf("expected OK: pong, got %v", lines)
	}
}

func TestUnknownCommand(t *testing.T) {
	srv, _ := newTestServer(t)
	lines := dialLine(t, srv, "bogus")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "ERR:") {
		t.Errorf("expected ERR response, got %v", lines)
	}
}

func TestStatusReportsPaneAndWindowCounts(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)
	sess.CreateWindow("w1", "")
	sess.AddPaneToWindow("w1", p.ID)

	lines := dialLine(t, srv, "status")
	if len(lines) != 1 || !strings.Contains(lines[0], "panes=1") || !strings.Contains(lines[0], "windows=1") {
		t.Errorf("expected status line to report 1 pane and 1 window, got %v", lines)
	}
}

func TestSendWritesToPane(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)

	genBefore := p.Generation()
	lines := dialLine(t, srv, "send "+p.ID+" hello")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "OK:") {
		t.Fatalf("expected OK response, got %v", lines)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Generation() == genBefore && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.Generation() == genBefore {
		t.Error("expected pane generation to advance after cat echoed the sent text back")
	}
}

func TestSendUnknownPane(t *testing.T) {
	srv, _ := newTestServer(t)
	lines := dialLine(t, srv, "send nonexistent hello")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "ERR:") {
		t.Errorf("expected ERR response for unknown pane, got %v", lines)
	}
}

func TestClipboardSetThenGet(t *testing.T) {
	srv, _ := newTestServer(t)

	lines := dialLine(t, srv, "clipboard-set c hello-world")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "OK:") {
		t.Fatalf("expected OK response for set, got %v", lines)
	}

	conn, err := net.DialTimeout("unix", srv.socketPath, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.Write([]byte("clipboard-get c\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
		if len(got) == 2 {
			break
		}
	}
	if len(got) != 2 || !strings.HasPrefix(got[0], "OK:") {
		t.Fatalf("expected OK header plus base64 body, got %v", got)
	}
	decoded, err := base64.StdEncoding.DecodeString(got[1])
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if string(decoded) != "hello-world" {
		t.Errorf("expected %q, got %q", "hello-world", string(decoded))
	}
}

func TestDebugCaptureToggle(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)

	capturePath := filepath.Join(t.TempDir(), "cap.hex")
	lines := dialLine(t, srv, "debug-capture "+p.ID+" on "+capturePath)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "OK:") {
		t.Fatalf("expected OK response, got %v", lines)
	}
	if !p.Capturing() {
		t.Fatal("expected pane to report capturing after debug-capture on")
	}

	dialLine(t, srv, "debug-capture "+p.ID+" off")
	deadline := time.Now().Add(2 * time.Second)
	for p.Capturing() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.Capturing() {
		t.Error("expected pane to stop capturing after debug-capture off")
	}
}

func TestPTYLogOnOff(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)

	logPath := filepath.Join(t.TempDir(), "log.jsonl")
	lines := dialLine(t, srv, "pty-log-on "+p.ID+" "+logPath)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "OK:") {
		t.Fatalf("expected OK response, got %v", lines)
	}
	if !p.TrafficLogging() {
		t.Fatal("expected pane to report traffic logging enabled")
	}

	dialLine(t, srv, "pty-log-off "+p.ID)
	if p.TrafficLogging() {
		t.Error("expected pane to report traffic logging disabled")
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected traffic log file to exist: %v", err)
	}
}

func TestTTYSizeReportsAndResizes(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)

	lines := dialLine(t, srv, "ttysize "+p.ID+" 60 20")
	if len(lines) != 1 || !strings.Contains(lines[0], "60x20") {
		t.Fatalf("expected resized size in response, got %v", lines)
	}
	cols, rows := p.Size()
	if cols != 60 || rows != 20 {
		t.Errorf("expected pane resized to (60,20), got (%d,%d)", cols, rows)
	}
}

func TestDumpJSONReportsSizeAndText(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)

	lines := dialLines(t, srv, "dump-json "+p.ID, 2)
	if len(lines) != 2 || lines[0] != "OK: dump follows" {
		t.Fatalf("expected 2 lines starting with OK: dump follows, got %v", lines)
	}

	var snap struct {
		Size struct {
			Rows int `json:"rows"`
			Cols int `json:"cols"`
		} `json:"size"`
		Lines []struct {
			Text string `json:"text"`
		} `json:"lines"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Size.Cols != 40 || snap.Size.Rows != 10 {
		t.Errorf("expected 40x10 size, got %dx%d", snap.Size.Cols, snap.Size.Rows)
	}
	if len(snap.Lines) != 10 {
		t.Errorf("expected 10 lines, got %d", len(snap.Lines))
	}
}

func TestDumpJSONUnknownPane(t *testing.T) {
	srv, _ := newTestServer(t)
	lines := dialLine(t, srv, "dump-json nope")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "ERR:") {
		t.Errorf("expected ERR response, got %v", lines)
	}
}

func TestScreenshotWritesPNGFile(t *testing.T) {
	srv, sess := newTestServer(t)
	p := newTestPane(t)
	sess.AddPane(p)

	path := filepath.Join(t.TempDir(), "shot.png")
	lines := dialLine(t, srv, "screenshot "+p.ID+" "+path)
	if len(lines) != 1 || lines[0] != "OK: wrote "+path {
		t.Fatalf("expected OK: wrote %s, got %v", path, lines)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read screenshot file: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("expected a PNG file, got %d bytes starting %q", len(data), data[:min(len(data), 8)])
	}
}

func TestScreenshotUnknownPane(t *testing.T) {
	srv, _ := newTestServer(t)
	lines := dialLine(t, srv, "screenshot nope")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "ERR:") {
		t.Errorf("expected ERR response, got %v", lines)
	}
}

func TestQuitInvokesCallback(t *testing.T) {
	srv, _ := newTestServer(t)
	called := make(chan struct{})
	srv.OnQuit = func() { close(called) }

	lines := dialLine(t, srv, "quit")
	if len(lines) != 1 || lines[0] != "OK: bye" {
		t.Fatalf("expected OK: bye, got %v", lines)
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("expected OnQuit to be invoked")
	}
}
