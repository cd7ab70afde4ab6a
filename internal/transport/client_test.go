package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/paneserver/termd/internal/pane"
	"github.com/paneserver/termd/internal/session"
	"github.com/paneserver/termd/internal/wire"
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

// newTestServer accepts a single WebSocket connection and binds it to a
// fresh Client wired to the given pane, running Client.Run in the handler
// goroutine so test bodies can drive the connection from the client side.
func newTestServer(t *testing.T, p *pane.Pane, sess *session.Session) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Logf("accept error: %v", err)
			return
		}
		c := NewClient("client-1", conn, p, sess)
		_ = c.Run(r.Context())
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestClientSendsInitialSnapshot(t *testing.T) {
	p := newTestPane(t)
	sess := session.New()
	srv := newTestServer(t, p, sess)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgType, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.MessageBinary {
		t.Fatalf("expected binary snapshot frame, got %v", msgType)
	}
	snap, err := wire.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Type != wire.TypeSnapshot {
		t.Errorf("expected type %q, got %q", wire.TypeSnapshot, snap.Type)
	}
}

func TestClientRegistersWithSession(t *testing.T) {
	p := newTestPane(t)
	sess := session.New()
	srv := newTestServer(t, p, sess)
	defer srv.Close()

	conn := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sess.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sess.ClientCount() != 1 {
		t.Fatalf("expected 1 registered client, got %d", sess.ClientCount())
	}

	conn.Close(websocket.StatusNormalClosure, "")

	deadline = time.Now().Add(2 * time.Second)
	for sess.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sess.ClientCount() != 0 {
		t.Errorf("expected client to be unregistered after close, count=%d", sess.ClientCount())
	}
}

func TestClientHandlesInputMessage(t *testing.T) {
	p := newTestPane(t)
	sess := session.New()
	srv := newTestServer(t, p, sess)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	in := InputMessage{Type: TypeInput, Key: "a", Down: true}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write input: %v", err)
	}

	genBefore := p.Generation()
	deadline := time.Now().Add(2 * time.Second)
	for p.Generation() == genBefore && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.Generation() == genBefore {
		t.Error("expected pane generation to advance after input was echoed back by cat")
	}
}

func TestClientHandlesPing(t *testing.T) {
	p := newTestPane(t)
	sess := session.New()
	srv := newTestServer(t, p, sess)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	raw, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: TypePing})
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	msgType, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msgType != websocket.MessageBinary {
		t.Fatalf("expected binary pong frame, got %v", msgType)
	}
	if _, err := wire.Unframe(data); err != nil {
		t.Fatalf("unframe pong: %v", err)
	}
}

func TestClientHandlesResize(t *testing.T) {
	p := newTestPane(t)
	sess := session.New()
	srv := newTestServer(t, p, sess)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	raw, _ := json.Marshal(ResizeMessage{Type: TypeResize, Cols: 60, Rows: 20})
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write resize: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cols, rows := p.Size(); cols == 60 && rows == 20 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	cols, rows := p.Size()
	t.Fatalf("expected pane to resize to (60,20), got (%d,%d)", cols, rows)
}

func TestClientAnswersPingAfterForcedResync(t *testing.T) {
	p := newTestPane(t)
	sess := session.New()
	srv := newTestServer(t, p, sess)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	p.Feed([]byte("hello"))
	p.ForceFullResync()

	raw, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: TypePing})
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read pong: %v", err)
	}
}
