// Package pane implements the per-pane terminal state machine: it drives a
// grid.Terminal from child PTY bytes, tracks the generation/dirty-row model
// that the wire codec needs, and synthesizes replies for terminal queries the
// child emits (DA1/DA2, DSR, OSC 52 clipboard, color queries, notifications).
package pane

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/paneserver/termd/internal/grid"
)

// Options configures a new Pane.
type Options struct {
	ID               string
	Cols, Rows       int
	Command          []string
	Env              []string
	AllowSyncOutput  bool
	CaptureFile      string // optional raw-byte debug capture path
}

// Pane owns one child PTY and the grid.Terminal parsing its output, plus the
// generation/dirty tracking and query-response state the delta protocol and
// the VT stream handler need.
type Pane struct {
	ID string

	mu   sync.Mutex
	term *grid.Terminal

	ptmx *os.File
	cmd  *exec.Cmd
	pid  int

	cols, rows int
	widthPx    int
	heightPx   int

	generation   uint64
	dirtyBaseGen uint64
	dirtyRows    map[uint64]bool // accumulated since last broadcast-cache regen

	cachedDelta         []byte
	cachedDeltaFromGen  uint64
	lastBroadcastGen    uint64

	lastWasAltScreen bool
	lastPageSerial   uint64

	syncOutputEnabled bool
	syncOutputStart   time.Time
	syncOutputAllowed bool

	selectionStart  [2]int
	selectionActive bool

	scrollOffset  int  // lines back into scrollback; 0 = live bottom
	forceAllDirty bool // set by Scroll: every viewport row must appear in the next delta

	themeFg, themeBg *[3]uint8

	clipboard clipboardState

	titleChanged   bool
	bellPending    bool
	notifyPending  bool
	notifyTitle    string
	notifyBody     string
	progressState  int
	progressValue  int
	progressChanged bool
	shellEventPending bool
	shellEvent        string

	inBandResizeEnabled bool

	captureFile *os.File
	trafficLog  atomic.Pointer[os.File]

	closed atomic.Bool
}

// New spawns the child command under a PTY of the given size and returns a
// running Pane. The caller is responsible for calling Close when done.
func New(opts Options) (*Pane, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Cols <= 0 {
		opts.Cols = grid.DEFAULT_COLS
	}
	if opts.Rows <= 0 {
		opts.Rows = grid.DEFAULT_ROWS
	}
	command := opts.Command
	if len(command) == 0 {
		command = []string{loginShell()}
	}

	p := &Pane{
		ID:                opts.ID,
		cols:              opts.Cols,
		rows:              opts.Rows,
		syncOutputAllowed: opts.AllowSyncOutput,
	}

	p.term = grid.New(
		grid.WithSize(opts.Rows, opts.Cols),
		grid.WithResponse(responseWriter{p}),
		grid.WithMiddleware(p.buildMiddleware()),
		grid.WithNotification(notificationAdapter{p}),
	)

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = childEnviron(opts.Env, p.ID)

	ws := &pty.Winsize{Rows: uint16(opts.Rows), Cols: uint16(opts.Cols)}
	ptmx, err := pty.StartWithSize(cmd, ws)
	if err != nil {
		return nil, fmt.Errorf("pane: spawn shell: %w", err)
	}

	if err := configureMaster(ptmx.Fd()); err != nil {
		slog.Warn("pane: configure master", "pane", p.ID, "err", err)
	}

	p.ptmx = ptmx
	p.cmd = cmd
	p.pid = cmd.Process.Pid

	if opts.CaptureFile != "" {
		f, err := os.OpenFile(opts.CaptureFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			slog.Warn("pane: could not open capture file", "pane", p.ID, "err", err)
		} else {
			p.captureFile = f
		}
	}

	return p, nil
}

func loginShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

// PTY returns the child's pseudo-terminal master, for the PTY multiplexer to
// poll and read from.
func (p *Pane) PTY() *os.File { return p.ptmx }

// PID returns the child process id, or 0 if the pane has no live child.
func (p *Pane) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// SetCaptureFile opens (truncating) path and starts hex-dumping every raw
// byte slice fed into the pane to it, closing any previously open capture
// file first. Backs the `debug-capture <pane> on` IPC command (§6.2,
// §6.3).
func (p *Pane) SetCaptureFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("pane: open capture file: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captureFile != nil {
		p.captureFile.Close()
	}
	p.captureFile = f
	return nil
}

// StopCapture closes the pane's capture file, if any, and stops hex-dumping
// raw bytes. Backs the `debug-capture <pane> off` IPC command.
func (p *Pane) StopCapture() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captureFile != nil {
		p.captureFile.Close()
		p.captureFile = nil
	}
}

// Capturing reports whether a capture file is currently open.
func (p *Pane) Capturing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captureFile != nil
}

// Feed is the central mutation path (§4.2): drive the VT parser over data,
// detect screen-switch and page-reallocation invalidation, collect dirty
// rows, and bump the generation counter.
func (p *Pane) Feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedLocked(data)
}

// FeedDirect is the same mutation path used to inject text into a pane with
// no backing PTY (a debug console virtual pane). It skips nothing: the
// capture side effect and dirty/generation bookkeeping are identical to Feed.
func (p *Pane) FeedDirect(data []byte) {
	p.Feed(data)
}

func (p *Pane) feedLocked(data []byte) {
	if p.captureFile != nil {
		fmt.Fprintf(p.captureFile, "%x\n", data)
	}
	p.logTraffic("feed", "program", "recv", data)

	p.scanSyncOutput(data)
	p.scanInBandResizeMode(data)
	p.term.Write(data)
	p.scanProgress(data)
	p.scanDCS(data)

	altScreen := p.term.IsAlternateScreen()
	if altScreen != p.lastWasAltScreen {
		p.lastWasAltScreen = altScreen
		p.forceFullResyncLocked()
	}

	pageSerial := p.term.PageSerial()
	if pageSerial != p.lastPageSerial {
		p.lastPageSerial = pageSerial
		p.forceFullResyncLocked()
	}

	for _, id := range p.term.DirtyRowIDs() {
		if p.dirtyRows == nil {
			p.dirtyRows = make(map[uint64]bool)
		}
		p.dirtyRows[id] = true
	}
	p.term.ClearRowDirty()

	p.generation++

	if p.syncOutputEnabled && time.Since(p.syncOutputStart) >= time.Second {
		p.syncOutputEnabled = false
	}
}

// scanSyncOutput looks for DEC 2026 (synchronized output) private-mode set
// and reset sequences in raw fed bytes and updates sync-output state
// accordingly (§4.7). Scanning the raw stream rather than hooking the grid's
// mode dispatch keeps this independent of how the VT decoder's private-mode
// enum happens to be named internally.
var (
	syncOutputSet   = []byte("\x1b[?2026h")
	syncOutputReset = []byte("\x1b[?2026l")
)

func (p *Pane) scanSyncOutput(data []byte) {
	if bytes.Contains(data, syncOutputSet) {
		if !p.syncOutputEnabled {
			p.syncOutputEnabled = true
			p.syncOutputStart = time.Now()
		}
	}
	if bytes.Contains(data, syncOutputReset) {
		if p.syncOutputEnabled {
			p.syncOutputEnabled = false
		}
	}
}

// scanInBandResizeMode looks for DEC private mode 2048 (in-band window-size
// reporting) set/reset sequences, the same raw-scan approach scanSyncOutput
// uses for mode 2026: go-ansicode's SetMode/UnsetMode dispatch only
// recognizes the modes it was built with an enum case for, and 2048 is not
// among them, so the byte stream has to be watched directly rather than
// through grid.Middleware's SetMode/UnsetMode hooks.
var (
	inBandResizeSet   = []byte("\x1b[?2048h")
	inBandResizeReset = []byte("\x1b[?2048l")
)

func (p *Pane) scanInBandResizeMode(data []byte) {
	if bytes.Contains(data, inBandResizeSet) {
		p.inBandResizeEnabled = true
	}
	if bytes.Contains(data, inBandResizeReset) {
		p.inBandResizeEnabled = false
	}
}

// SyncOutputActive reports whether synchronized output is currently enabled
// (and permitted) for this pane. While active, the caller should withhold
// delta broadcasts until it returns false again.
func (p *Pane) SyncOutputActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.syncOutputAllowed && p.syncOutputEnabled
}

// forceFullResyncLocked implements §4.4. Caller must hold p.mu.
func (p *Pane) forceFullResyncLocked() {
	p.generation++
	p.term.ClearRowDirty()
	p.dirtyRows = nil
	p.dirtyBaseGen = p.generation
	p.cachedDelta = nil
	p.lastBroadcastGen = p.generation
}

// ForceFullResync forces every connected client to re-snapshot on its next
// request, regardless of whether anything actually changed.
func (p *Pane) ForceFullResync() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceFullResyncLocked()
}

// Resize updates the pane's viewport, reflows the grid, and pushes the new
// size to the child PTY (§4.3).
func (p *Pane) Resize(cols, rows, cellW, cellH int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	oldCols, oldRows := p.cols, p.rows
	p.cols, p.rows = cols, rows
	p.term.Resize(rows, cols)

	if cellW > 0 && cellH > 0 {
		p.widthPx, p.heightPx = cols*cellW, rows*cellH
	} else if p.widthPx == 0 {
		p.widthPx, p.heightPx = cols*8, rows*16
	} else {
		p.widthPx = cols * (p.widthPx / maxInt(1, oldCols))
		p.heightPx = rows * (p.heightPx / maxInt(1, oldRows))
	}

	if err := pty.Setsize(p.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		slog.Warn("pane: resize pty", "pane", p.ID, "err", err)
	}

	p.syncOutputEnabled = false

	if p.inBandResizeEnabled {
		p.writeResponse([]byte(fmt.Sprintf("\x1b[48;%d;%d;%d;%dt", rows, cols, p.heightPx, p.widthPx)))
	}

	p.generation++
	p.forceFullResyncLocked()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Scroll moves the scrollback viewport by delta rows (positive = toward
// scrollback/up, negative = toward the live bottom), marking the viewport
// dirty since every visible row may now be a different row (§4.3).
func (p *Pane) Scroll(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	maxOffset := p.term.ScrollbackLen()
	p.scrollOffset += delta
	if p.scrollOffset < 0 {
		p.scrollOffset = 0
	}
	if p.scrollOffset > maxOffset {
		p.scrollOffset = maxOffset
	}

	p.forceAllDirty = true
	p.generation++
}

// ScrollOffset returns how many lines back into scrollback the pane's
// viewport is currently positioned (0 = live bottom).
func (p *Pane) ScrollOffset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollOffset
}

// Write forwards client-originated input bytes to the child's stdin.
func (p *Pane) Write(data []byte) (int, error) {
	p.logTraffic("input", "input", "send", data)
	return p.ptmx.Write(data)
}

// writeResponse forwards a synthesized reply (DA1/DA2/DSR, color query, OSC
// 52) to the child's stdin, tagged distinctly from client input in the PTY
// traffic log (§6.3).
func (p *Pane) writeResponse(data []byte) (int, error) {
	p.logTraffic("response", "response", "send", data)
	return p.ptmx.Write(data)
}

// Generation returns the pane's current generation counter.
func (p *Pane) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Size returns the pane's current viewport dimensions in columns and rows.
func (p *Pane) Size() (cols, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cols, p.rows
}

// CursorKeyApplicationMode reports whether DECCKM is set, selecting between
// the two arrow-key byte forms KeyToBytes produces (§4.9).
func (p *Pane) CursorKeyApplicationMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term.HasMode(grid.ModeCursorKeys)
}

// SetSelection records a client's text selection in viewport coordinates.
func (p *Pane) SetSelection(startRow, startCol, endRow, endCol int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term.SetSelection(grid.Position{Row: startRow, Col: startCol}, grid.Position{Row: endRow, Col: endCol})
}

// ClearSelection drops any active selection.
func (p *Pane) ClearSelection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term.ClearSelection()
}

// Close tears down the child process, escalating TERM → 500ms → KILL → 1s,
// then releases grid/clipboard/capture resources.
func (p *Pane) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid > 0 {
		syscall.Kill(pid, syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			p.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			syscall.Kill(pid, syscall.SIGKILL)
			select {
			case <-done:
			case <-time.After(time.Second):
				slog.Warn("pane: child did not exit after SIGKILL", "pane", p.ID, "pid", pid)
			}
		}
	}

	p.mu.Lock()
	p.pid = 0
	p.mu.Unlock()

	err := p.ptmx.Close()
	if p.captureFile != nil {
		p.captureFile.Close()
	}
	if f := p.trafficLog.Swap(nil); f != nil {
		f.Close()
	}
	return err
}

// IsAlive reports whether the child process is still running, clearing the
// stored PID as a side effect if it has exited (non-blocking wait).
func (p *Pane) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid == 0 {
		return false
	}
	var ws syscall.WaitStatus
	wpid, err := syscall.Wait4(p.pid, &ws, syscall.WNOHANG, nil)
	if err != nil || wpid == p.pid {
		p.pid = 0
		return false
	}
	return true
}

// responseWriter adapts Pane.writeResponse so grid.Terminal can send synthesized
// query replies back into the child's stdin.
type responseWriter struct{ p *Pane }

func (r responseWriter) Write(data []byte) (int, error) { return r.p.writeResponse(data) }
