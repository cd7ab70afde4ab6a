package wire

import (
	"encoding/binary"

	"github.com/paneserver/termd/internal/grid"
)

// Underline style enum occupying flags bits 8-15.
const (
	UnderlineNone = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

// Style flag bits (little-endian u16).
const (
	FlagBold uint16 = 1 << iota
	FlagItalic
	FlagFaint
	FlagBlink
	FlagInverse
	FlagInvisible
	FlagStrikethrough
	FlagOverline
)

// Style is the 14-byte wire representation of a cell's formatting.
type Style struct {
	Fg        Color
	Bg        Color
	Underline Color
	Flags     uint16
}

// Bytes encodes the style as 14 bytes: fg(4) bg(4) underline(4) flags(2).
func (s Style) Bytes() [14]byte {
	var b [14]byte
	fg := s.Fg.Bytes()
	bg := s.Bg.Bytes()
	ul := s.Underline.Bytes()
	copy(b[0:4], fg[:])
	copy(b[4:8], bg[:])
	copy(b[8:12], ul[:])
	binary.LittleEndian.PutUint16(b[12:14], s.Flags)
	return b
}

// StyleFromBytes decodes a 14-byte wire style.
func StyleFromBytes(b [14]byte) Style {
	var fg, bg, ul [4]byte
	copy(fg[:], b[0:4])
	copy(bg[:], b[4:8])
	copy(ul[:], b[8:12])
	return Style{
		Fg:        ColorFromBytes(fg),
		Bg:        ColorFromBytes(bg),
		Underline: ColorFromBytes(ul),
		Flags:     binary.LittleEndian.Uint16(b[12:14]),
	}
}

// StyleFromCell derives the wire Style for a grid cell's current attributes.
func StyleFromCell(c *grid.Cell) Style {
	var flags uint16
	if c.HasFlag(grid.CellFlagBold) {
		flags |= FlagBold
	}
	if c.HasFlag(grid.CellFlagItalic) {
		flags |= FlagItalic
	}
	if c.HasFlag(grid.CellFlagDim) {
		flags |= FlagFaint
	}
	if c.HasFlag(grid.CellFlagBlinkSlow) || c.HasFlag(grid.CellFlagBlinkFast) {
		flags |= FlagBlink
	}
	if c.HasFlag(grid.CellFlagReverse) {
		flags |= FlagInverse
	}
	if c.HasFlag(grid.CellFlagHidden) {
		flags |= FlagInvisible
	}
	if c.HasFlag(grid.CellFlagStrike) {
		flags |= FlagStrikethrough
	}

	underline := uint16(UnderlineNone)
	switch {
	case c.HasFlag(grid.CellFlagDoubleUnderline):
		underline = UnderlineDouble
	case c.HasFlag(grid.CellFlagCurlyUnderline):
		underline = UnderlineCurly
	case c.HasFlag(grid.CellFlagDottedUnderline):
		underline = UnderlineDotted
	case c.HasFlag(grid.CellFlagDashedUnderline):
		underline = UnderlineDashed
	case c.HasFlag(grid.CellFlagUnderline):
		underline = UnderlineSingle
	}
	flags |= underline << 8

	return Style{
		Fg:        EncodeColor(c.Fg, true),
		Bg:        EncodeColor(c.Bg, false),
		Underline: EncodeColor(c.UnderlineColor, true),
		Flags:     flags,
	}
}

// defaultStyle is the style of a cell with no attributes or color overrides;
// it always interns to style id 0, which wire payloads omit from the style
// table entirely (§3.6: only non-zero style IDs are carried in the table).
var defaultStyle = Style{
	Fg:        Color{Tag: ColorNone},
	Bg:        Color{Tag: ColorNone},
	Underline: Color{Tag: ColorNone},
	Flags:     0,
}

// Table interns Style values into small u16 IDs so that repeated styles
// across a viewport are only transmitted once. ID 0 is reserved for
// defaultStyle and is never emitted in a wire style table.
type Table struct {
	ids    map[Style]uint16
	styles []Style
}

// NewTable creates an empty style table.
func NewTable() *Table {
	return &Table{ids: make(map[Style]uint16)}
}

// Intern returns the style ID for s, allocating a new one if s has not been
// seen before in this table's lifetime.
func (t *Table) Intern(s Style) uint16 {
	if s == defaultStyle {
		return 0
	}
	if id, ok := t.ids[s]; ok {
		return id
	}
	t.styles = append(t.styles, s)
	id := uint16(len(t.styles))
	t.ids[s] = id
	return id
}

// Lookup returns the style registered under id, or false if id is 0 or
// unknown.
func (t *Table) Lookup(id uint16) (Style, bool) {
	if id == 0 || int(id) > len(t.styles) {
		return Style{}, false
	}
	return t.styles[id-1], true
}

// Entries returns every interned (id, style) pair in ascending id order,
// suitable for the count-prefixed wire style table.
func (t *Table) Entries() []StyleEntry {
	entries := make([]StyleEntry, len(t.styles))
	for i, s := range t.styles {
		entries[i] = StyleEntry{ID: uint16(i + 1), Style: s}
	}
	return entries
}

// StyleEntry pairs a style ID with its decoded Style, the logical unit of
// the wire style table (`{style_id:2, style:14}`).
type StyleEntry struct {
	ID    uint16
	Style Style
}

// EncodeStyleTable serializes a set of entries as the wire style table:
// count-prefixed u16 followed by `{id:2, style:14}` per entry.
func EncodeStyleTable(entries []StyleEntry) []byte {
	out := make([]byte, 2+len(entries)*16)
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(entries)))
	off := 2
	for _, e := range entries {
		binary.LittleEndian.PutUint16(out[off:off+2], e.ID)
		b := e.Style.Bytes()
		copy(out[off+2:off+16], b[:])
		off += 16
	}
	return out
}

// DecodeStyleTable parses the wire style table produced by EncodeStyleTable.
func DecodeStyleTable(data []byte) ([]StyleEntry, error) {
	if len(data) < 2 {
		return nil, errShortStyleTable
	}
	count := binary.LittleEndian.Uint16(data[0:2])
	entries := make([]StyleEntry, 0, count)
	off := 2
	for i := 0; i < int(count); i++ {
		if off+16 > len(data) {
			return nil, errShortStyleTable
		}
		id := binary.LittleEndian.Uint16(data[off : off+2])
		var sb [14]byte
		copy(sb[:], data[off+2:off+16])
		entries = append(entries, StyleEntry{ID: id, Style: StyleFromBytes(sb)})
		off += 16
	}
	return entries, nil
}
