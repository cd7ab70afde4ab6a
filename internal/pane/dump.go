package pane

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"strings"

	"github.com/paneserver/termd/internal/grid"
)

// DumpText renders the pane's current viewport as plain text, one line per
// row, trailing whitespace trimmed. Backs the IPC `dump` command (§6.2).
func (p *Pane) DumpText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := make([]string, p.rows)
	for row := 0; row < p.rows; row++ {
		lines[row] = p.term.LineContent(row)
	}
	return strings.Join(lines, "\n")
}

// DumpRaw renders the pane's viewport cell-by-cell, one line per row, as
// "<codepoint-hex>:<flags>" tuples separated by spaces. Intended for
// debugging cell attributes the plain-text dump discards; backs the IPC
// `dump-raw` command (§6.2).
func (p *Pane) DumpRaw() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	for row := 0; row < p.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < p.cols; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			c := p.term.Cell(row, col)
			if c == nil {
				b.WriteString("00:0")
				continue
			}
			fmt.Fprintf(&b, "%04x:%x", c.Char, uint32(c.Flags))
		}
	}
	return b.String()
}

// DumpJSON renders the pane's current state as a structured JSON snapshot
// (size, cursor, per-line styled segments or cell-by-cell attributes, and
// any placed images), for tooling that wants more than the plain-text or
// raw-cell dumps. detail selects "text", "styled", or "full"; an unknown
// value falls back to "text". Backs the IPC `dump-json` command (§6.2).
func (p *Pane) DumpJSON(detail string) ([]byte, error) {
	d := grid.SnapshotDetail(detail)
	switch d {
	case grid.SnapshotDetailStyled, grid.SnapshotDetailFull:
	default:
		d = grid.SnapshotDetailText
	}

	p.mu.Lock()
	snap := p.term.Snapshot(d)
	p.mu.Unlock()

	return json.Marshal(snap)
}

// Screenshot renders the pane's current viewport to a PNG image using the
// default font and palette. Intended for debugging/support tooling that
// wants a visual capture rather than the text/JSON dumps above; backs the
// IPC `screenshot` command (§6.2).
func (p *Pane) Screenshot() ([]byte, error) {
	p.mu.Lock()
	img := p.term.Screenshot()
	p.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("pane: encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// SelectedText returns the text within the pane's active selection, if any.
func (p *Pane) SelectedText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term.GetSelectedText()
}

// LastCommandOutput returns the output of the most recently finished shell
// command, as reported via OSC 133 semantic prompt marks, if any.
func (p *Pane) LastCommandOutput() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term.GetLastCommandOutput()
}
