package pane

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const trafficLogMaxBytes = 4096

// trafficEvent is one line of the PTY traffic log (§6.3): every byte slice
// crossing a pane boundary, tagged by where it came from and which way it
// moved.
type trafficEvent struct {
	TSMs      int64  `json:"ts_ms"`
	Event     string `json:"event"`
	PaneID    string `json:"pane_id"`
	Origin    string `json:"origin"`    // "program" | "input" | "response"
	Direction string `json:"direction"` // "send" | "recv"
	Len       int    `json:"len"`
	Truncated bool   `json:"truncated,omitempty"`
	Bytes     string `json:"bytes,omitempty"`
	Text      string `json:"text,omitempty"`
}

// EnableTrafficLog opens (truncating) path and starts writing one JSON line
// per PTY event crossing this pane. Backed by an atomic file pointer rather
// than p.mu: logTraffic is called from feedLocked (already holding p.mu) and
// from Write/writeResponse (which must not take p.mu, since writeResponse is
// itself invoked by grid.Terminal's response callback from inside a
// feedLocked call). Backs the `pty-log-on` IPC command (§6.2, §6.3).
func (p *Pane) EnableTrafficLog(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("pane: open traffic log: %w", err)
	}
	if old := p.trafficLog.Swap(f); old != nil {
		old.Close()
	}
	return nil
}

// DisableTrafficLog closes the pane's traffic log, if any. Backs the
// `pty-log-off` IPC command.
func (p *Pane) DisableTrafficLog() {
	if old := p.trafficLog.Swap(nil); old != nil {
		old.Close()
	}
}

// TrafficLogging reports whether a traffic log is currently open. Backs the
// `pty-log` (status) IPC command.
func (p *Pane) TrafficLogging() bool {
	return p.trafficLog.Load() != nil
}

func (p *Pane) logTraffic(event, origin, direction string, data []byte) {
	f := p.trafficLog.Load()
	if f == nil {
		return
	}
	truncated := false
	logged := data
	if len(logged) > trafficLogMaxBytes {
		logged = logged[:trafficLogMaxBytes]
		truncated = true
	}
	rec := trafficEvent{
		TSMs:      time.Now().UnixMilli(),
		Event:     event,
		PaneID:    p.ID,
		Origin:    origin,
		Direction: direction,
		Len:       len(data),
		Truncated: truncated,
		Bytes:     hex.EncodeToString(logged),
		Text:      string(logged),
	}
	raw, err := json.Marshal(&rec)
	if err != nil {
		return
	}
	raw = append(raw, '\n')
	f.Write(raw)
}
