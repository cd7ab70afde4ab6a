package pane

import (
	"github.com/paneserver/termd/internal/grid"
	"github.com/paneserver/termd/internal/wire"
)

// viewportRowLocked returns the row at viewport index `row`, honoring the
// pane's current scrollback offset: offset 0 reads the live grid, a
// positive offset reads backward into scrollback instead of the top of the
// live screen. Caller must hold p.mu.
func (p *Pane) viewportRowLocked(row int) (id uint64, cells []grid.Cell, wrapped bool) {
	if p.scrollOffset == 0 {
		return p.liveRowLocked(row)
	}

	sbLen := p.term.ScrollbackLen()
	// Row 0 of the viewport is `scrollOffset` lines back from the live top.
	sbIndex := sbLen - p.scrollOffset + row
	if sbIndex >= 0 && sbIndex < sbLen {
		return 0, p.term.ScrollbackLine(sbIndex), false
	}

	// Falls within the live grid: the bottom (p.scrollOffset-sbIndex... )
	// rows of the viewport map onto the top of the live screen.
	liveRow := sbIndex - sbLen
	if liveRow < 0 || liveRow >= p.rows {
		return 0, nil, false
	}
	return p.liveRowLocked(liveRow)
}

func (p *Pane) liveRowLocked(row int) (id uint64, cells []grid.Cell, wrapped bool) {
	if row < 0 || row >= p.rows {
		return 0, nil, false
	}
	cells = make([]grid.Cell, p.cols)
	for col := 0; col < p.cols; col++ {
		if c := p.term.Cell(row, col); c != nil {
			cells[col] = *c
		}
	}
	return p.term.RowID(row), cells, p.term.IsWrapped(row)
}

func (p *Pane) cursorLocked() wire.Cursor {
	row, col := p.term.CursorPos()
	return wire.Cursor{
		X:       col,
		Y:       row,
		Visible: p.term.CursorVisible() && p.scrollOffset == 0,
		Style:   int(p.term.CursorStyle()),
	}
}

func (p *Pane) scrollbackLocked() wire.Scrollback {
	return wire.Scrollback{
		TotalRows:   p.term.ScrollbackLen(),
		ViewportTop: p.term.ScrollbackLen() - p.scrollOffset,
	}
}

// Snapshot builds a full-viewport snapshot payload for a newly attached (or
// resynchronizing) client and resets the broadcast cache against it, so the
// next Delta call produces an incremental update from this generation
// (§3.6, §4.6).
func (p *Pane) Snapshot() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	viewport := make([]wire.ViewportRow, p.rows)
	for row := 0; row < p.rows; row++ {
		id, cells, wrapped := p.viewportRowLocked(row)
		viewport[row] = wire.ViewportRow{ID: id, Cells: cells, Wrapped: wrapped}
	}

	framed, err := wire.BuildSnapshot(
		p.generation, p.cols, p.rows,
		p.cursorLocked(), p.term.IsAlternateScreen(), p.scrollbackLocked(),
		viewport,
	)
	if err != nil {
		return nil, err
	}

	p.dirtyRows = nil
	p.dirtyBaseGen = p.generation
	p.forceAllDirty = false
	p.cachedDelta = nil
	p.lastBroadcastGen = p.generation

	return framed, nil
}

// Delta builds an incremental update from clientGen to the pane's current
// generation for an already-attached client, implementing the broadcast
// cache algorithm in §4.6:
//
//   - clientGen < dirtyBaseGen: the client has fallen behind a forced full
//     resync and must re-snapshot instead (ok == false signals this).
//   - clientGen == current generation: nothing changed; returns (nil, true,
//     nil).
//   - otherwise: build (or reuse a cached) delta covering every row dirtied
//     since dirtyBaseGen.
func (p *Pane) Delta(clientGen uint64) (framed []byte, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if clientGen < p.dirtyBaseGen {
		return nil, false, nil
	}
	if clientGen == p.generation && !p.forceAllDirty {
		return nil, true, nil
	}

	if p.cachedDelta != nil && p.cachedDeltaFromGen == p.dirtyBaseGen && p.lastBroadcastGen == p.generation {
		return p.cachedDelta, true, nil
	}

	var dirty []wire.DirtyInput
	if p.forceAllDirty {
		dirty = make([]wire.DirtyInput, 0, p.rows)
		for row := 0; row < p.rows; row++ {
			id, cells, wrapped := p.viewportRowLocked(row)
			dirty = append(dirty, wire.DirtyInput{ID: id, Cells: cells, Wrapped: wrapped})
		}
	} else {
		dirty = make([]wire.DirtyInput, 0, len(p.dirtyRows))
		for row := 0; row < p.rows; row++ {
			id, cells, wrapped := p.viewportRowLocked(row)
			if !p.dirtyRows[id] {
				continue
			}
			dirty = append(dirty, wire.DirtyInput{ID: id, Cells: cells, Wrapped: wrapped})
		}
	}

	viewportIDs := make([]uint64, p.rows)
	for row := 0; row < p.rows; row++ {
		id, _, _ := p.viewportRowLocked(row)
		viewportIDs[row] = id
	}

	framed, err = wire.BuildDelta(
		p.generation, p.dirtyBaseGen, p.cols, p.rows,
		p.cursorLocked(), p.term.IsAlternateScreen(), p.scrollbackLocked(),
		dirty, viewportIDs,
	)
	if err != nil {
		return nil, false, err
	}

	p.dirtyRows = nil
	p.dirtyBaseGen = p.generation
	p.forceAllDirty = false
	p.cachedDelta = framed
	p.cachedDeltaFromGen = p.dirtyBaseGen
	p.lastBroadcastGen = p.generation

	return framed, true, nil
}
