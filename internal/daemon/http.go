package daemon

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/paneserver/termd/internal/grid"
	"github.com/paneserver/termd/internal/pane"
	"github.com/paneserver/termd/internal/transport"
)

// handleWebSocket accepts a client connection, resolves it to a pane
// (attaching to an existing one named by the "pane" query parameter, or
// spawning a new one when absent), and runs the client's read loop until
// it disconnects.
func (d *Daemon) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("daemon: websocket accept", "err", err)
		return
	}
	defer conn.CloseNow()

	p, err := d.resolvePane(r)
	if err != nil {
		slog.Warn("daemon: resolve pane", "err", err)
		conn.Close(websocket.StatusInternalError, err.Error())
		return
	}

	clientID := uuid.NewString()
	c := transport.NewClient(clientID, conn, p, d.sess)

	d.addClient(c)
	defer d.removeClient(c)

	if err := c.Run(r.Context()); err != nil {
		slog.Info("daemon: client disconnected", "client", clientID, "pane", p.ID, "err", err)
	}
}

// resolvePane attaches to the pane named by the "pane" query parameter, or
// spawns a fresh one (sized from "cols"/"rows") when the parameter is
// absent — the pane then outlives this one client, available for later
// connections to attach to by id.
func (d *Daemon) resolvePane(r *http.Request) (*pane.Pane, error) {
	q := r.URL.Query()
	if id := q.Get("pane"); id != "" {
		p, ok := d.sess.Pane(id)
		if !ok {
			return nil, fmt.Errorf("unknown pane %q", id)
		}
		return p, nil
	}

	cols := queryInt(q, "cols", grid.DEFAULT_COLS)
	rows := queryInt(q, "rows", grid.DEFAULT_ROWS)

	p, err := pane.New(pane.Options{
		Cols:            cols,
		Rows:            rows,
		AllowSyncOutput: d.cfg.AllowSyncOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("spawn pane: %w", err)
	}
	d.sess.AddPane(p)
	return p, nil
}

func queryInt(q map[string][]string, key string, def int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return def
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil || n <= 0 {
		return def
	}
	return n
}
