// Package wire implements the binary cell/style codec and the
// snapshot/delta payload format exchanged with clients.
package wire

import (
	"image/color"

	"github.com/paneserver/termd/internal/grid"
)

// ColorTag identifies how a wire Color's three value bytes should be
// interpreted.
type ColorTag uint8

const (
	ColorNone ColorTag = iota
	ColorPalette
	ColorRGB
)

// Color is the 4-byte wire representation of a single color: a tag byte
// followed by three value bytes whose meaning depends on the tag.
type Color struct {
	Tag        ColorTag
	V0, V1, V2 uint8
}

// Bytes returns the 4-byte wire encoding.
func (c Color) Bytes() [4]byte {
	return [4]byte{byte(c.Tag), c.V0, c.V1, c.V2}
}

// ColorFromBytes decodes a 4-byte wire color.
func ColorFromBytes(b [4]byte) Color {
	return Color{Tag: ColorTag(b[0]), V0: b[1], V1: b[2], V2: b[3]}
}

// EncodeColor converts a grid color.Color into its wire form. Plain
// foreground/background semantic colors (the "use the pane default" case)
// encode as ColorNone so a client paints them with its own theme. Palette
// indices (0-255) encode as ColorPalette. Everything else — true color and
// the grid's other semantic names (cursor, dim variants) which have no
// client-side equivalent — resolves to a concrete RGB triple via the grid's
// own default-palette resolution.
func EncodeColor(c color.Color, fg bool) Color {
	if c == nil {
		return Color{Tag: ColorNone}
	}

	switch v := c.(type) {
	case *grid.NamedColor:
		if fg && v.Name == grid.NamedColorForeground {
			return Color{Tag: ColorNone}
		}
		if !fg && v.Name == grid.NamedColorBackground {
			return Color{Tag: ColorNone}
		}
		rgba := grid.ResolveDefaultColor(c, fg)
		return Color{Tag: ColorRGB, V0: rgba.R, V1: rgba.G, V2: rgba.B}
	case *grid.IndexedColor:
		if v.Index >= 0 && v.Index < 256 {
			return Color{Tag: ColorPalette, V0: uint8(v.Index)}
		}
		rgba := grid.ResolveDefaultColor(c, fg)
		return Color{Tag: ColorRGB, V0: rgba.R, V1: rgba.G, V2: rgba.B}
	default:
		rgba := grid.ResolveDefaultColor(c, fg)
		return Color{Tag: ColorRGB, V0: rgba.R, V1: rgba.G, V2: rgba.B}
	}
}
