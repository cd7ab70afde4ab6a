package pane

// KeyEvent is a single client keyboard event, as forwarded over the wire
// protocol's input frame.
type KeyEvent struct {
	Key   string // e.g. "a", "Enter", "ArrowUp", "F5", or a multi-byte rune like "😀"
	Down  bool   // false for key-up; key-up always produces no bytes
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

var modifierOnlyKeys = map[string]bool{
	"Shift": true, "Control": true, "Alt": true, "Meta": true,
	"CapsLock": true, "NumLock": true, "ScrollLock": true,
	"Hyper": true, "Super": true, "OS": true, "AltGraph": true,
	"Fn": true, "FnLock": true,
}

var namedKeyBytes = map[string]string{
	"Enter":     "\r",
	"Backspace": "\x7f",
	"Tab":       "\t",
	"Escape":    "\x1b",
	"Delete":    "\x1b[3~",
	"Home":      "\x1b[H",
	"End":       "\x1b[F",
	"PageUp":    "\x1b[5~",
	"PageDown":  "\x1b[6~",
	"Insert":    "\x1b[2~",
	"F1":        "\x1bOP",
	"F2":        "\x1bOQ",
	"F3":        "\x1bOR",
	"F4":        "\x1bOS",
	"F5":        "\x1b[15~",
	"F6":        "\x1b[17~",
	"F7":        "\x1b[18~",
	"F8":        "\x1b[19~",
	"F9":        "\x1b[20~",
	"F10":       "\x1b[21~",
	"F11":       "\x1b[23~",
	"F12":       "\x1b[24~",
}

var arrowLetters = map[string]byte{
	"ArrowUp": 'A', "ArrowDown": 'B', "ArrowRight": 'C', "ArrowLeft": 'D',
}

// KeyToBytes renders a client keyboard event to the bytes that should be
// written to the child's stdin, per §4.9. cursorKeyApplicationMode selects
// between `ESC [ <L>` and `ESC O <L>` for plain arrow keys.
func KeyToBytes(ev KeyEvent, cursorKeyApplicationMode bool) []byte {
	if !ev.Down {
		return nil
	}
	if modifierOnlyKeys[ev.Key] {
		return nil
	}

	if letter, isArrow := arrowLetters[ev.Key]; isArrow {
		if ev.Alt || ev.Ctrl || ev.Shift {
			m := 1
			if ev.Alt {
				m += 2
			}
			if ev.Ctrl {
				m += 4
			}
			return []byte{0x1b, '[', '1', ';', byte('0' + m), letter}
		}
		if cursorKeyApplicationMode {
			return []byte{0x1b, 'O', letter}
		}
		return []byte{0x1b, '[', letter}
	}

	if ev.Key == "Tab" && ev.Shift {
		return []byte("\x1b[Z")
	}

	if bytesForKey, ok := namedKeyBytes[ev.Key]; ok {
		return applyAltPrefix(ev, []byte(bytesForKey))
	}

	// Single ASCII character with Ctrl held.
	if ev.Ctrl && len([]rune(ev.Key)) == 1 {
		if b, ok := ctrlByte(rune(ev.Key[0])); ok {
			return applyAltPrefix(ev, []byte{b})
		}
	}

	// Plain character (possibly multi-byte UTF-8, e.g. emoji) or Alt+char.
	return applyAltPrefix(ev, []byte(ev.Key))
}

func applyAltPrefix(ev KeyEvent, b []byte) []byte {
	if !ev.Alt {
		return b
	}
	out := make([]byte, 0, len(b)+1)
	out = append(out, 0x1b)
	return append(out, b...)
}

func ctrlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 1, true
	case r >= 'A' && r <= 'Z':
		return byte(r-'A') + 1, true
	case r == '@':
		return 0x00, true
	case r == '[':
		return 0x1b, true
	case r == '\\':
		return 0x1c, true
	case r == ']':
		return 0x1d, true
	case r == '^':
		return 0x1e, true
	case r == '_':
		return 0x1f, true
	case r == '?':
		return 0x7f, true
	}
	return 0, false
}
