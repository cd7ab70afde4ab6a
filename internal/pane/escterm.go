package pane

import "bytes"

// indexOSCTerminator finds the end of an OSC (Operating System Command)
// string within data, honoring both valid terminators: BEL and the two-byte
// String Terminator (ESC \). Returns -1, 0 if neither appears yet.
func indexOSCTerminator(data []byte) (idx, width int) {
	bel := bytes.IndexByte(data, '\a')
	st := bytes.Index(data, []byte("\x1b\\"))
	switch {
	case bel >= 0 && (st < 0 || bel < st):
		return bel, 1
	case st >= 0:
		return st, 2
	default:
		return -1, 0
	}
}

// indexDCSTerminator finds the end of a DCS (Device Control String) within
// data. DCS strings are terminated the same way OSC strings are.
func indexDCSTerminator(data []byte) (idx, width int) {
	return indexOSCTerminator(data)
}
