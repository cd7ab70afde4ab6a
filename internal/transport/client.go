package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/paneserver/termd/internal/pane"
	"github.com/paneserver/termd/internal/session"
	"github.com/paneserver/termd/internal/wire"
)

const (
	readLimitBytes = 512 * 1024
	writeTimeout   = 10 * time.Second
)

// Client owns one connected WebSocket session bound to a single pane: it
// reads JSON control frames and translates them into pane operations, and
// pushes binary snapshot/delta/pong/clipboard frames back.
type Client struct {
	ID   string
	conn *websocket.Conn
	pane *pane.Pane
	sess *session.Session

	lastGen uint64
}

// NewClient wraps an already-accepted WebSocket connection bound to pane.
func NewClient(id string, conn *websocket.Conn, p *pane.Pane, sess *session.Session) *Client {
	conn.SetReadLimit(readLimitBytes)
	return &Client{ID: id, conn: conn, pane: p, sess: sess}
}

// Run sends an initial snapshot, registers the client with the session, and
// then reads inbound control frames until the connection closes or ctx is
// canceled. The caller is expected to drive PushDelta from elsewhere (e.g.
// on each ptymux.Multiplexer.Wake() signal) concurrently with Run.
func (c *Client) Run(ctx context.Context) error {
	c.sess.RegisterClient(c.ID)
	defer c.sess.UnregisterClient(c.ID)

	if err := c.sendSnapshot(ctx); err != nil {
		return fmt.Errorf("transport: initial snapshot: %w", err)
	}

	for {
		msgType, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}
		if err := c.handleMessage(ctx, data); err != nil {
			slog.Warn("transport: handle message", "client", c.ID, "err", err)
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeInput:
		var m InputMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		out := pane.KeyToBytes(pane.KeyEvent{
			Key: m.Key, Down: m.Down,
			Ctrl: m.Ctrl, Alt: m.Alt, Shift: m.Shift, Meta: m.Meta,
		}, c.pane.CursorKeyApplicationMode())
		if len(out) == 0 {
			return nil
		}
		_, err := c.pane.Write(out)
		return err

	case TypeResize:
		var m ResizeMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		c.pane.Resize(m.Cols, m.Rows, m.CellW, m.CellH)
		return nil

	case TypeScroll:
		var m ScrollMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		c.pane.Scroll(m.Delta)
		return nil

	case TypeSelection:
		var m SelectionMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if !m.Active {
			c.pane.ClearSelection()
			return nil
		}
		c.pane.SetSelection(m.StartRow, m.StartCol, m.EndRow, m.EndCol)
		return nil

	case TypeFocus:
		// Focus is purely client-side rendering state; the server has
		// nothing to react to.
		return nil

	case TypePing:
		return c.sendPong(ctx)

	case TypeClipboard:
		var m ClipboardReplyMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(m.Data)
		if err != nil {
			return fmt.Errorf("decode clipboard reply: %w", err)
		}
		c.pane.ResolveClipboardGet(m.Kind, raw)
		return nil

	default:
		return nil
	}
}

func (c *Client) sendSnapshot(ctx context.Context) error {
	framed, err := c.pane.Snapshot()
	if err != nil {
		return err
	}
	c.lastGen = c.pane.Generation()
	return c.writeBinary(ctx, framed)
}

// PushDelta sends an incremental update if the pane has advanced since this
// client's last send, falling back to a full snapshot if the client has
// fallen behind a forced resync (§4.6).
func (c *Client) PushDelta(ctx context.Context) error {
	framed, ok, err := c.pane.Delta(c.lastGen)
	if err != nil {
		return err
	}
	if !ok {
		return c.sendSnapshot(ctx)
	}
	if framed == nil {
		return nil
	}
	c.lastGen = c.pane.Generation()
	return c.writeBinary(ctx, framed)
}

func (c *Client) sendPong(ctx context.Context) error {
	framed, err := wire.EncodePong()
	if err != nil {
		return err
	}
	return c.writeBinary(ctx, framed)
}

// SendClipboard pushes a clipboard set/get notification to this client
// (§4.5, §6.1).
func (c *Client) SendClipboard(ctx context.Context, op string, kind byte, data []byte) error {
	msg := wire.Clipboard{Op: op, Kind: kind, PaneID: c.pane.ID}
	if data != nil {
		msg.Data = base64.StdEncoding.EncodeToString(data)
	}
	framed, err := wire.EncodeClipboard(msg)
	if err != nil {
		return err
	}
	return c.writeBinary(ctx, framed)
}

func (c *Client) writeBinary(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageBinary, data)
}

// Close closes the underlying WebSocket connection immediately.
func (c *Client) Close() error {
	return c.conn.CloseNow()
}
