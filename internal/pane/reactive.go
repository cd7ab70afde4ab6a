package pane

import (
	"fmt"

	"github.com/danielgatis/go-ansicode"

	"github.com/paneserver/termd/internal/grid"
)

// buildMiddleware assembles the grid.Middleware overrides this pane needs:
// clipboard handshake (async, not the synchronous ClipboardProvider path),
// DA1/DA2 identify-terminal bytes, the DSR color-scheme query, and 16-bit
// color widening for OSC 10/11/12/4 replies. Everything else falls through
// to the grid's built-in defaults via next(...).
func (p *Pane) buildMiddleware() *grid.Middleware {
	return &grid.Middleware{
		ClipboardLoad: func(clipboard byte, terminator string, next func(byte, string)) {
			p.onClipboardLoad(clipboard, terminator)
		},
		ClipboardStore: func(clipboard byte, data []byte, next func(byte, []byte)) {
			p.onClipboardStore(clipboard, data)
		},
		DeviceStatus: func(n int, next func(int)) {
			if n == 996 {
				p.replyColorScheme()
				return
			}
			next(n)
		},
		IdentifyTerminal: func(b byte, next func(byte)) {
			p.replyIdentifyTerminal(b)
		},
		SetDynamicColor: func(prefix string, index int, terminator string, next func(string, int, string)) {
			p.replyDynamicColor(prefix, index, terminator)
		},
		Bell: func(next func()) {
			p.mu.Lock()
			p.bellPending = true
			p.mu.Unlock()
			next()
		},
		SetTitle: func(title string, next func(string)) {
			p.mu.Lock()
			p.titleChanged = true
			p.mu.Unlock()
			next(title)
		},
		SemanticPromptMark: func(mark ansicode.ShellIntegrationMark, exitCode int, next func(ansicode.ShellIntegrationMark, int)) {
			p.mu.Lock()
			p.shellEvent = shellEventName(mark, exitCode)
			p.shellEventPending = true
			p.mu.Unlock()
			next(mark, exitCode)
		},
	}
}

// shellEventName renders an OSC 133 mark as the one-shot event string
// TakeShellEvent reports, mirroring TakeBell/TakeTitleChanged's
// latch-and-report pattern for the other query-driven Pane attributes.
func shellEventName(mark ansicode.ShellIntegrationMark, exitCode int) string {
	switch mark {
	case ansicode.PromptStart:
		return "prompt-start"
	case ansicode.CommandStart:
		return "command-start"
	case ansicode.CommandExecuted:
		return "command-executed"
	case ansicode.CommandFinished:
		return fmt.Sprintf("command-finished:%d", exitCode)
	default:
		return "unknown"
	}
}

// TakeShellEvent returns and clears the most recent OSC 133 semantic-prompt
// mark, if any, since the last call. LastCommandOutput (dump.go) answers
// "what did the last command print"; TakeShellEvent answers "did a prompt
// lifecycle event just happen", the one-shot form the other query-driven
// attributes (bell, title) already use.
func (p *Pane) TakeShellEvent() (event string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.shellEventPending {
		return "", false
	}
	p.shellEventPending = false
	return p.shellEvent, true
}

// replyIdentifyTerminal answers DA1 (b == 0 or '0', primary attributes
// query) with VT220+color+clipboard, and DA2 (b == '>') with the secondary
// attributes the spec requires; anything else falls back to the primary
// reply, mirroring how real terminals treat unrecognized DA forms.
func (p *Pane) replyIdentifyTerminal(b byte) {
	if b == '>' {
		p.writeResponse([]byte("\x1b[>1;10;0c"))
		return
	}
	p.writeResponse([]byte("\x1b[?62;22;52c"))
}

// replyColorScheme answers CSI ? 996 n with the pane's light/dark verdict,
// computed from ITU-R BT.709 luminance of the effective background color.
func (p *Pane) replyColorScheme() {
	p.mu.Lock()
	bg := p.themeBg
	p.mu.Unlock()

	var r, g, b uint32
	if bg != nil {
		r, g, b = uint32(bg[0]), uint32(bg[1]), uint32(bg[2])
	} else {
		rgba := grid.ResolveDefaultColor(nil, false)
		r, g, b = uint32(rgba.R), uint32(rgba.G), uint32(rgba.B)
	}
	luminance := (2126*r + 7152*g + 722*b) / 10000
	if luminance > 127 {
		p.writeResponse([]byte("\x1b[?997;1n"))
	} else {
		p.writeResponse([]byte("\x1b[?997;2n"))
	}
}

// replyDynamicColor answers OSC 10/11/12/4 color queries with 8→16 bit
// widened RGB values (0xAB → 0xABAB), as the child's terminfo-compliant
// query parser expects, honoring the request's BEL/ST terminator preference.
func (p *Pane) replyDynamicColor(prefix string, index int, terminator string) {
	p.mu.Lock()
	fg, bg := p.themeFg, p.themeBg
	p.mu.Unlock()

	var rgba struct{ R, G, B uint8 }
	switch {
	case prefix == "10" && fg != nil:
		rgba.R, rgba.G, rgba.B = fg[0], fg[1], fg[2]
	case prefix == "11" && bg != nil:
		rgba.R, rgba.G, rgba.B = bg[0], bg[1], bg[2]
	case prefix == "4":
		if index >= 0 && index < 256 {
			c := grid.DefaultPalette[index]
			rgba.R, rgba.G, rgba.B = c.R, c.G, c.B
		}
	default:
		isFg := prefix == "10" || prefix == "12"
		c := grid.ResolveDefaultColor(nil, isFg)
		rgba.R, rgba.G, rgba.B = c.R, c.G, c.B
	}

	reply := fmt.Sprintf("\x1b]%s;rgb:%02x%02x/%02x%02x/%02x%02x%s",
		prefix, rgba.R, rgba.R, rgba.G, rgba.G, rgba.B, rgba.B, terminator)
	p.writeResponse([]byte(reply))
}

// SetThemeColors records the master client's RGB overrides used to answer
// OSC 10/11 foreground/background color queries and the DSR color-scheme
// luminance check.
func (p *Pane) SetThemeColors(fg, bg *[3]uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themeFg, p.themeBg = fg, bg
}

// notificationAdapter satisfies grid.NotificationProvider by latching
// pending-notification state on the pane instead of replying synchronously;
// OSC 99 desktop notifications have no query form worth answering in-band.
type notificationAdapter struct{ p *Pane }

func (a notificationAdapter) Notify(payload *grid.NotificationPayload) string {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	switch payload.PayloadType {
	case "title":
		a.p.notifyTitle = string(payload.Data)
	default:
		a.p.notifyBody = string(payload.Data)
	}
	a.p.notifyPending = true
	return ""
}

// TakeNotification returns and clears the most recent desktop notification,
// if any.
func (p *Pane) TakeNotification() (title, body string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.notifyPending {
		return "", "", false
	}
	p.notifyPending = false
	title, body = p.notifyTitle, p.notifyBody
	p.notifyTitle, p.notifyBody = "", ""
	return title, body, true
}

// TakeBell reports and clears a pending bell event.
func (p *Pane) TakeBell() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.bellPending
	p.bellPending = false
	return v
}

// TakeTitleChanged reports and clears whether the title changed since the
// last call, along with its current value.
func (p *Pane) TakeTitleChanged() (title string, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed = p.titleChanged
	p.titleChanged = false
	return p.term.Title(), changed
}
