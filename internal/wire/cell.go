package wire

import (
	"encoding/binary"
	"errors"

	"github.com/paneserver/termd/internal/grid"
)

var (
	errShortStyleTable = errors.New("wire: truncated style table")
	errShortCellData   = errors.New("wire: truncated cell data")
)

// ContentKind is the 2-bit tag distinguishing a cell record's payload.
type ContentKind uint8

const (
	ContentEmpty ContentKind = iota
	ContentCodepoint
	ContentGrapheme
	ContentExtension
)

// Bit layout of the packed 8-byte cell record (little-endian uint64):
//
//	bits  0-20  code point           (21 bits)
//	bits 21-22  content-kind tag     (2 bits)
//	bits 23-38  style id             (16 bits)
//	bit     39  wide flag
//	bit     40  wide-spacer flag
//	bit     41  wrap-continuation flag
//	bit     42  protected flag
//	bits 43-63  reserved, always 0
const (
	codePointBits = 21
	codePointMask = 1<<codePointBits - 1
	kindShift     = codePointBits
	kindMask      = 0x3
	styleShift    = kindShift + 2
	styleMask     = 0xFFFF
	wideBit       = 1 << 39
	spacerBit     = 1 << 40
	wrapBit       = 1 << 41
	protectedBit  = 1 << 42
)

// Record is the decoded form of a packed 8-byte cell.
type Record struct {
	CodePoint rune
	Kind      ContentKind
	StyleID   uint16
	Wide      bool
	Spacer    bool
	Wrapped   bool
	Protected bool
}

// Pack encodes r into its 8-byte little-endian wire form.
func (r Record) Pack() uint64 {
	v := uint64(r.CodePoint) & codePointMask
	v |= uint64(r.Kind&kindMask) << kindShift
	v |= uint64(r.StyleID) << styleShift
	if r.Wide {
		v |= wideBit
	}
	if r.Spacer {
		v |= spacerBit
	}
	if r.Wrapped {
		v |= wrapBit
	}
	if r.Protected {
		v |= protectedBit
	}
	return v
}

// Unpack decodes an 8-byte little-endian wire cell.
func Unpack(v uint64) Record {
	return Record{
		CodePoint: rune(v & codePointMask),
		Kind:      ContentKind((v >> kindShift) & kindMask),
		StyleID:   uint16((v >> styleShift) & styleMask),
		Wide:      v&wideBit != 0,
		Spacer:    v&spacerBit != 0,
		Wrapped:   v&wrapBit != 0,
		Protected: v&protectedBit != 0,
	}
}

// PutRecord writes r's 8-byte encoding into dst[0:8].
func PutRecord(dst []byte, r Record) {
	binary.LittleEndian.PutUint64(dst, r.Pack())
}

// ReadRecord decodes the 8-byte record at src[0:8].
func ReadRecord(src []byte) Record {
	return Unpack(binary.LittleEndian.Uint64(src))
}

// RecordFromCell derives a wire Record for a grid cell, interning its style
// into table and marking wrap-continuation from the buffer's per-row wrap
// flag (the grid tracks wrapping at the row level, not per cell).
func RecordFromCell(c *grid.Cell, wrapped bool, table *Table) Record {
	kind := ContentCodepoint
	if c.Char == 0 {
		kind = ContentEmpty
	}
	if c.HasImage() {
		kind = ContentExtension
	}

	return Record{
		CodePoint: c.Char,
		Kind:      kind,
		StyleID:   table.Intern(StyleFromCell(c)),
		Wide:      c.IsWide(),
		Spacer:    c.IsWideSpacer(),
		Wrapped:   wrapped,
		Protected: false,
	}
}

// EncodeRow packs an entire row of cells into len(cells)·8 contiguous bytes.
func EncodeRow(cells []grid.Cell, wrapped bool, table *Table) []byte {
	out := make([]byte, len(cells)*8)
	for i := range cells {
		w := wrapped && i == len(cells)-1
		PutRecord(out[i*8:i*8+8], RecordFromCell(&cells[i], w, table))
	}
	return out
}

// DecodeRow unpacks cols·8 bytes of row data into Records.
func DecodeRow(data []byte) ([]Record, error) {
	if len(data)%8 != 0 {
		return nil, errShortCellData
	}
	out := make([]Record, len(data)/8)
	for i := range out {
		out[i] = ReadRecord(data[i*8 : i*8+8])
	}
	return out, nil
}
