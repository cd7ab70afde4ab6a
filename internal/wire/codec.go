package wire

import (
	"encoding/binary"

	"github.com/paneserver/termd/internal/grid"
	"github.com/vmihailenco/msgpack/v5"
)

// RowIDBytes packs a slice of row IDs as rows·8 little-endian bytes.
func RowIDBytes(ids []uint64) []byte {
	out := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], id)
	}
	return out
}

// DecodeRowIDs unpacks a rows·8-byte row-ID array.
func DecodeRowIDs(data []byte) ([]uint64, error) {
	if len(data)%8 != 0 {
		return nil, errShortCellData
	}
	out := make([]uint64, len(data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	return out, nil
}

// ViewportRow is one row of the current viewport, as needed by both the
// snapshot and delta builders.
type ViewportRow struct {
	ID      uint64
	Cells   []grid.Cell
	Wrapped bool
}

// BuildSnapshot encodes a full-viewport snapshot and returns the
// [compression byte][msgpack payload] framed bytes (§3.6, §4.6).
func BuildSnapshot(gen uint64, cols, rows int, cursor Cursor, altScreen bool, sb Scrollback, viewport []ViewportRow) ([]byte, error) {
	table := NewTable()
	cells := make([]byte, 0, rows*cols*8)
	for _, row := range viewport {
		if row.Cells == nil {
			cells = append(cells, make([]byte, cols*8)...)
			continue
		}
		cells = append(cells, EncodeRow(row.Cells, row.Wrapped, table)...)
	}

	rowIDs := make([]uint64, len(viewport))
	for i, row := range viewport {
		rowIDs[i] = row.ID
	}

	snap := Snapshot{
		Type:       TypeSnapshot,
		Gen:        gen,
		Cols:       cols,
		Rows:       rows,
		Cursor:     cursor,
		AltScreen:  altScreen,
		Scrollback: sb,
		Cells:      cells,
		Styles:     EncodeStyleTable(table.Entries()),
		RowIds:     RowIDBytes(rowIDs),
	}

	raw, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, err
	}
	return Frame(raw), nil
}

// DirtyInput is one dirty row supplied to BuildDelta, already filtered to
// the viewport (the off-screen variant of the delta format is not produced;
// see the Open Question resolution in DESIGN.md).
type DirtyInput struct {
	ID      uint64
	Cells   []grid.Cell
	Wrapped bool
}

// BuildDelta encodes an incremental delta from fromGen to gen and returns
// framed bytes (§3.6, §4.6). viewportRowIDs is the full current-viewport row
// ID array, always emitted so a client can re-map IDs to screen positions
// even for rows whose content did not change.
func BuildDelta(gen, fromGen uint64, cols, rows int, cursor Cursor, altScreen bool, sb Scrollback, dirty []DirtyInput, viewportRowIDs []uint64) ([]byte, error) {
	table := NewTable()
	rowsOut := make([]DirtyRow, len(dirty))
	for i, d := range dirty {
		rowsOut[i] = DirtyRow{
			ID:    d.ID,
			Cells: EncodeRow(d.Cells, d.Wrapped, table),
		}
	}

	delta := Delta{
		Type:       TypeDelta,
		Gen:        gen,
		FromGen:    fromGen,
		Cols:       cols,
		Rows:       rows,
		Cursor:     cursor,
		AltScreen:  altScreen,
		Scrollback: sb,
		DirtyRows:  rowsOut,
		RowIds:     RowIDBytes(viewportRowIDs),
		Styles:     EncodeStyleTable(table.Entries()),
	}

	raw, err := msgpack.Marshal(&delta)
	if err != nil {
		return nil, err
	}
	return Frame(raw), nil
}

// DecodeSnapshot unframes and unmarshals a snapshot payload.
func DecodeSnapshot(framed []byte) (*Snapshot, error) {
	raw, err := Unframe(framed)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// EncodePong frames a keepalive reply (§6.1).
func EncodePong() ([]byte, error) {
	raw, err := msgpack.Marshal(&struct {
		Type string `msgpack:"type"`
	}{Type: TypePong})
	if err != nil {
		return nil, err
	}
	return Frame(raw), nil
}

// EncodeClipboard frames a clipboard set/get notification (§4.5, §6.1).
func EncodeClipboard(c Clipboard) ([]byte, error) {
	c.Type = TypeClipboard
	raw, err := msgpack.Marshal(&c)
	if err != nil {
		return nil, err
	}
	return Frame(raw), nil
}

// DecodeClipboard unframes and unmarshals a clipboard payload.
func DecodeClipboard(framed []byte) (*Clipboard, error) {
	raw, err := Unframe(framed)
	if err != nil {
		return nil, err
	}
	var c Clipboard
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeDelta unframes and unmarshals a delta payload.
func DecodeDelta(framed []byte) (*Delta, error) {
	raw, err := Unframe(framed)
	if err != nil {
		return nil, err
	}
	var delta Delta
	if err := msgpack.Unmarshal(raw, &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}
