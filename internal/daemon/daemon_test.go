package daemon

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/paneserver/termd/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TERMD_CONFIG_DIR", dir)

	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.SocketPath = dir + "/termd.sock"
	return cfg
}

func startDaemon(t *testing.T, cfg *config.Config) (*Daemon, context.CancelFunc) {
	t.Helper()
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for d.Addr() == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("daemon did not bind a listen address in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-runErr:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not shut down in time")
		}
	})

	return d, cancel
}

func TestDaemonBindsEphemeralPort(t *testing.T) {
	cfg := testConfig(t)
	d, _ := startDaemon(t, cfg)

	if d.Addr() == "" {
		t.Fatal("expected a bound address")
	}
}

func TestDaemonWebSocketSpawnsAndAttaches(t *testing.T) {
	cfg := testConfig(t)
	d, _ := startDaemon(t, cfg)

	u := url.URL{Scheme: "ws", Host: d.Addr(), Path: "/ws", RawQuery: "cols=40&rows=12"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty snapshot frame")
	}

	panes := d.sess.Panes()
	if len(panes) != 1 {
		t.Fatalf("expected 1 pane after spawn, got %d", len(panes))
	}
	paneID := panes[0].ID

	u2 := url.URL{Scheme: "ws", Host: d.Addr(), Path: "/ws", RawQuery: "pane=" + url.QueryEscape(paneID)}
	conn2, _, err := websocket.Dial(ctx, u2.String(), nil)
	if err != nil {
		t.Fatalf("dial attach: %v", err)
	}
	defer conn2.Close(websocket.StatusNormalClosure, "")

	if _, _, err := conn2.Read(ctx); err != nil {
		t.Fatalf("read snapshot on attach: %v", err)
	}

	if got := len(d.sess.Panes()); got != 1 {
		t.Fatalf("attach should not spawn a new pane, got %d panes", got)
	}
}

func TestDaemonWebSocketUnknownPaneRejected(t *testing.T) {
	cfg := testConfig(t)
	d, _ := startDaemon(t, cfg)

	u := url.URL{Scheme: "ws", Host: d.Addr(), Path: "/ws", RawQuery: "pane=does-not-exist"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected connection to be closed for unknown pane")
	}
}

func TestDaemonIPCQuitTriggersShutdown(t *testing.T) {
	cfg := testConfig(t)
	d, cancel := startDaemon(t, cfg)
	defer cancel()

	// quit is delivered over the IPC socket by the ipc package's own test
	// suite; here we only confirm the wiring calls shutdownSoon and that
	// the HTTP listener stops accepting new connections afterward.
	d.shutdownSoon()

	time.Sleep(50 * time.Millisecond)

	u := url.URL{Scheme: "ws", Host: d.Addr(), Path: "/ws"}
	ctx, cancelDial := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancelDial()

	_, resp, err := websocket.Dial(ctx, u.String(), nil)
	if err == nil {
		t.Fatal("expected dial to fail after shutdown")
	}
	if resp != nil && resp.StatusCode == http.StatusOK {
		t.Fatal("expected non-200 response after shutdown")
	}
}
