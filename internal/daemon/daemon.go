// Package daemon wires the session registry, PTY multiplexer, WebSocket
// transport, and IPC control socket into one running server process
// (§6's collaborators, previously out of scope for the core spec).
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/paneserver/termd/internal/config"
	"github.com/paneserver/termd/internal/ipc"
	"github.com/paneserver/termd/internal/ptymux"
	"github.com/paneserver/termd/internal/session"
	"github.com/paneserver/termd/internal/transport"
)

// Daemon owns every long-lived piece of a running server: the pane/window
// registry, the PTY poll loop, the HTTP/WebSocket listener, and the IPC
// control socket.
type Daemon struct {
	cfg     *config.Config
	sess    *session.Session
	mux     *ptymux.Multiplexer
	layouts *config.LayoutStore
	pidFile *config.PIDFile
	ipcSrv  *ipc.Server
	httpSrv *http.Server

	addrMu sync.Mutex
	addr   string

	clientsMu sync.Mutex
	clients   map[string]*transport.Client
}

// Addr returns the bound HTTP listen address (useful when ListenAddr uses
// port 0), empty until Run has started listening.
func (d *Daemon) Addr() string {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	return d.addr
}

// New builds a Daemon from cfg but does not yet bind any socket; opening the
// layout store starts its file watcher. Call Run to start serving.
func New(cfg *config.Config) (*Daemon, error) {
	sess := session.New()

	layouts, err := config.OpenLayoutStore()
	if err != nil {
		return nil, fmt.Errorf("daemon: open layout store: %w", err)
	}

	d := &Daemon{
		cfg:     cfg,
		sess:    sess,
		mux:     ptymux.New(sess),
		layouts: layouts,
		clients: make(map[string]*transport.Client),
	}
	return d, nil
}

// Run acquires the PID-file lock, binds the control socket and HTTP
// listener, and blocks until ctx is canceled, an IPC quit command is
// received, or a fatal startup error occurs. It always releases the PID file and closes both listeners
// before returning.
func (d *Daemon) Run(ctx context.Context) error {
	pidPath := config.PIDFilePath()
	pf, err := config.Acquire(pidPath)
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	d.pidFile = pf
	defer d.pidFile.Release()
	defer d.layouts.Close()

	sockPath := config.SocketPath(d.cfg)
	ipcSrv, err := ipc.Listen(d.sess, sockPath)
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	d.ipcSrv = ipcSrv
	d.ipcSrv.SetDebugLogDefault(d.cfg.DebugLogDefault)
	d.ipcSrv.OnClipboardSet = d.broadcastClipboard
	d.ipcSrv.OnQuit = func() { d.shutdownSoon() }
	defer d.ipcSrv.Close()
	go d.ipcSrv.Serve()

	muxCtx, cancelMux := context.WithCancel(ctx)
	defer cancelMux()
	go d.mux.Run(muxCtx)
	go d.broadcastLoop(muxCtx)

	ln, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("daemon: listen on %s: %w", d.cfg.ListenAddr, err)
	}
	d.addrMu.Lock()
	d.addr = ln.Addr().String()
	d.addrMu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.handleWebSocket)
	d.httpSrv = &http.Server{Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("daemon: listening", "addr", d.Addr(), "socket", sockPath)
		if err := d.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("daemon: http server: %w", err)
		}
	}

	return d.shutdown()
}

func (d *Daemon) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if d.httpSrv != nil {
		err = d.httpSrv.Shutdown(shutdownCtx)
	}

	d.clientsMu.Lock()
	for _, c := range d.clients {
		c.Close()
	}
	d.clientsMu.Unlock()

	for _, p := range d.sess.Panes() {
		p.Close()
	}

	return err
}

// shutdownSoon is invoked from the IPC `quit` command's OnQuit hook; it
// closes the HTTP listener, which unblocks Run's select and triggers the
// same graceful shutdown path a canceled context would.
func (d *Daemon) shutdownSoon() {
	if d.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.httpSrv.Shutdown(shutdownCtx)
	}
}

// broadcastLoop pushes a fresh delta to every connected client whenever the
// PTY multiplexer reports new bytes fed into any pane (§4.8's wake signal).
func (d *Daemon) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.mux.Wake():
			d.pushAll(ctx)
		}
	}
}

func (d *Daemon) pushAll(ctx context.Context) {
	d.clientsMu.Lock()
	clients := make([]*transport.Client, 0, len(d.clients))
	for _, c := range d.clients {
		clients = append(clients, c)
	}
	d.clientsMu.Unlock()

	for _, c := range clients {
		pushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := c.PushDelta(pushCtx); err != nil {
			slog.Warn("daemon: push delta failed", "client", c.ID, "err", err)
		}
		cancel()
	}
}

func (d *Daemon) addClient(c *transport.Client) {
	d.clientsMu.Lock()
	d.clients[c.ID] = c
	d.clientsMu.Unlock()
}

func (d *Daemon) removeClient(c *transport.Client) {
	d.clientsMu.Lock()
	delete(d.clients, c.ID)
	d.clientsMu.Unlock()
}

// broadcastClipboard mirrors a host-originated clipboard-set (§4.5, §6.1's
// clipboard message) out to every connected client.
func (d *Daemon) broadcastClipboard(kind byte, data []byte) {
	d.clientsMu.Lock()
	clients := make([]*transport.Client, 0, len(d.clients))
	for _, c := range d.clients {
		clients = append(clients, c)
	}
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, c := range clients {
		if err := c.SendClipboard(ctx, "set", kind, data); err != nil {
			slog.Warn("daemon: clipboard broadcast failed", "client", c.ID, "err", err)
		}
	}
}
