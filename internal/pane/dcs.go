package pane

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/paneserver/termd/internal/grid"
	"github.com/paneserver/termd/internal/wire"
)

// scanDCS looks for complete DCS (Device Control String) sequences in newly
// fed bytes and answers the two query forms §4.1 requires: DECRQSS (request
// status string) and XTGETTCAP (request termcap/terminfo string capability).
// go-ansicode's Handler interface exposes no hook for either — its only DCS
// dispatch is SixelReceived, wired for the sixel 'q' introducer — so, like
// scanSyncOutput and scanInBandResizeMode, this watches the raw byte stream
// directly rather than routing through grid.Middleware. It runs after
// p.term.Write so a DECRQSS query answers with the state that query's own
// chunk just established, not the state before it.
func (p *Pane) scanDCS(data []byte) {
	for {
		start := bytes.Index(data, []byte("\x1bP"))
		if start < 0 {
			return
		}
		rest := data[start+2:]
		end, width := indexDCSTerminator(rest)
		if end < 0 {
			return
		}
		p.handleDCS(rest[:end])
		data = rest[end+width:]
	}
}

func (p *Pane) handleDCS(payload []byte) {
	switch {
	case bytes.HasPrefix(payload, []byte("$q")):
		p.replyDECRQSS(payload[2:])
	case bytes.HasPrefix(payload, []byte("+q")):
		p.replyXTGETTCAP(payload[2:])
	}
}

// replyDECRQSS answers a DECRQSS request (DCS $ q Pt ST) with the current
// value of the requested status string: SGR ("m"), cursor style ("␣q"),
// or the scrolling ("r") / margin ("s") regions. An unrecognized Pt gets the
// "request error" form (DCS 0 $ r ST) real terminals send back.
func (p *Pane) replyDECRQSS(query []byte) {
	q := string(query)

	p.mu.Lock()
	var pt string
	var ok bool
	switch q {
	case "m":
		pt, ok = p.sgrStatusLocked()+"m", true
	case " q":
		pt, ok = fmt.Sprintf("%d q", int(p.term.CursorStyle())+1), true
	case "r":
		top, bottom := p.term.ScrollRegion()
		pt, ok = fmt.Sprintf("%d;%dr", top+1, bottom), true
	case "s":
		pt, ok = fmt.Sprintf("1;%ds", p.cols), true
	}
	p.mu.Unlock()

	if !ok {
		slog.Debug("pane: unhandled DECRQSS query", "pane", p.ID, "pt", q)
		p.writeResponse([]byte("\x1bP0$r\x1b\\"))
		return
	}
	p.writeResponse([]byte(fmt.Sprintf("\x1bP1$r%s\x1b\\", pt)))
}

// sgrStatusLocked renders the pane's current SGR rendition as the semicolon
// list DECRQSS's "m" form reports, grounded on how internal/wire.EncodeColor
// already classifies a cell's Fg/Bg for the wire codec. Caller must hold p.mu.
func (p *Pane) sgrStatusLocked() string {
	attrs := p.term.CurrentAttrs()
	params := []string{"0"}
	add := func(cond bool, code string) {
		if cond {
			params = append(params, code)
		}
	}
	add(attrs.Flags&grid.CellFlagBold != 0, "1")
	add(attrs.Flags&grid.CellFlagDim != 0, "2")
	add(attrs.Flags&grid.CellFlagItalic != 0, "3")
	add(attrs.Flags&grid.CellFlagUnderline != 0, "4")
	add(attrs.Flags&grid.CellFlagBlinkSlow != 0, "5")
	add(attrs.Flags&grid.CellFlagBlinkFast != 0, "6")
	add(attrs.Flags&grid.CellFlagReverse != 0, "7")
	add(attrs.Flags&grid.CellFlagHidden != 0, "8")
	add(attrs.Flags&grid.CellFlagStrike != 0, "9")

	if fg := wire.EncodeColor(attrs.Fg, true); fg.Tag != wire.ColorNone {
		if fg.Tag == wire.ColorPalette {
			params = append(params, fmt.Sprintf("38;5;%d", fg.V0))
		} else {
			params = append(params, fmt.Sprintf("38;2;%d;%d;%d", fg.V0, fg.V1, fg.V2))
		}
	}
	if bg := wire.EncodeColor(attrs.Bg, false); bg.Tag != wire.ColorNone {
		if bg.Tag == wire.ColorPalette {
			params = append(params, fmt.Sprintf("48;5;%d", bg.V0))
		} else {
			params = append(params, fmt.Sprintf("48;2;%d;%d;%d", bg.V0, bg.V1, bg.V2))
		}
	}
	return strings.Join(params, ";")
}

// xtgettcapReplies holds the capability strings this pane answers XTGETTCAP
// queries for, keyed by terminfo/termcap name. "indn" and "Ms" are real
// terminfo capability strings (scroll-forward and xterm's OSC 52 clipboard
// format respectively); "query-os-name" is not a standard terminfo
// capability but a convention some multiplexer-aware programs use to ask
// the host OS name without shelling out.
func xtgettcapReplies() map[string]string {
	return map[string]string{
		"indn":          "\x1b[%p1%dS",
		"Ms":            "\x1b]52;%p1%s;%p2%s\x07",
		"query-os-name": runtime.GOOS,
	}
}

// replyXTGETTCAP answers an XTGETTCAP request (DCS + q Pt ST, Pt a
// semicolon-separated list of hex-encoded capability names) with a
// "hex(name)=hex(value)" pair for every capability it recognizes. If none of
// the requested names are recognized it sends the "request error" form
// (DCS 0 + r ST) real terminals use.
func (p *Pane) replyXTGETTCAP(query []byte) {
	known := xtgettcapReplies()
	var matched []string
	for _, part := range bytes.Split(query, []byte(";")) {
		name, err := hex.DecodeString(string(part))
		if err != nil {
			continue
		}
		value, ok := known[string(name)]
		if !ok {
			slog.Debug("pane: unhandled XTGETTCAP capability", "pane", p.ID, "name", string(name))
			continue
		}
		matched = append(matched, fmt.Sprintf("%s=%s",
			strings.ToUpper(hex.EncodeToString(name)),
			strings.ToUpper(hex.EncodeToString([]byte(value)))))
	}

	if len(matched) == 0 {
		p.writeResponse([]byte("\x1bP0+r\x1b\\"))
		return
	}
	p.writeResponse([]byte(fmt.Sprintf("\x1bP1+r%s\x1b\\", strings.Join(matched, ";"))))
}
