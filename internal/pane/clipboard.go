package pane

import (
	"encoding/base64"
	"time"
)

const (
	clipboardGetTimeout  = 5 * time.Second
	clipboardMaxResponse = 100_000
)

// clipboardState holds the OSC 52 handshake state described in §4.5: a
// pending SET the master client can pull, and a pending GET awaiting either
// a client reply or a timeout. The kind priority (c > p > s) and the "empty
// selector defaults to c" rule are resolved by the VT decoder before it
// calls ClipboardLoad/ClipboardStore, so clipboard here is already the
// single resolved kind byte.
type clipboardState struct {
	pendingSetKind byte
	pendingSetData []byte
	hasPendingSet  bool

	pendingGetKind       byte
	pendingGetTerminator string
	getStarted           time.Time
	getSent              bool
	hasPendingGet        bool
}

// onClipboardLoad starts a GET: the child is asking for clipboard contents.
// Invoked from the grid.Middleware ClipboardLoad override in place of the
// synchronous ClipboardProvider path, since the handshake here is async
// with a 5s timeout instead of an immediate return value.
func (p *Pane) onClipboardLoad(clipboard byte, terminator string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clipboard.pendingGetKind = clipboard
	p.clipboard.pendingGetTerminator = terminator
	p.clipboard.getStarted = time.Now()
	p.clipboard.getSent = false
	p.clipboard.hasPendingGet = true
}

// onClipboardStore records a SET: the child is pushing clipboard content.
func (p *Pane) onClipboardStore(clipboard byte, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clipboard.pendingSetKind = clipboard
	p.clipboard.pendingSetData = append([]byte(nil), data...)
	p.clipboard.hasPendingSet = true
}

// PendingClipboardGet returns the clipboard kind awaiting a GET reply from
// the master client, marking it as sent so the poll loop does not resend the
// same request. Returns ok=false if there is no pending GET or it was
// already sent.
func (p *Pane) PendingClipboardGet() (kind byte, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.clipboard.hasPendingGet || p.clipboard.getSent {
		return 0, false
	}
	p.clipboard.getSent = true
	return p.clipboard.pendingGetKind, true
}

// ResolveClipboardGet delivers the master client's clipboard contents (plain
// text, not yet base64-encoded) back into the child's stdin as an OSC 52
// reply, then clears the pending GET.
func (p *Pane) ResolveClipboardGet(kind byte, content []byte) {
	p.mu.Lock()
	if !p.clipboard.hasPendingGet || p.clipboard.pendingGetKind != kind {
		p.mu.Unlock()
		return
	}
	terminator := p.clipboard.pendingGetTerminator
	p.clipboard.hasPendingGet = false
	p.mu.Unlock()

	p.writeClipboardReply(kind, terminator, content)
}

// ExpireClipboardGets unblocks any pending GET older than the 5s timeout by
// replying with empty content, as §4.5 requires. Intended to be polled
// periodically (e.g. alongside the PTY multiplexer's idle tick).
func (p *Pane) ExpireClipboardGets() {
	p.mu.Lock()
	if !p.clipboard.hasPendingGet || time.Since(p.clipboard.getStarted) < clipboardGetTimeout {
		p.mu.Unlock()
		return
	}
	kind := p.clipboard.pendingGetKind
	terminator := p.clipboard.pendingGetTerminator
	p.clipboard.hasPendingGet = false
	p.mu.Unlock()

	p.writeClipboardReply(kind, terminator, nil)
}

func (p *Pane) writeClipboardReply(kind byte, terminator string, content []byte) {
	encoded := base64.StdEncoding.EncodeToString(content)
	reply := "\x1b]52;" + string(kind) + ";" + encoded + terminator
	if len(reply) > clipboardMaxResponse {
		reply = "\x1b]52;" + string(kind) + ";" + terminator
	}
	p.writeResponse([]byte(reply))
}

// TakePendingClipboardSet returns and clears the most recent SET payload, if
// any, so the master client can retrieve it (e.g. to mirror into the host
// OS clipboard).
func (p *Pane) TakePendingClipboardSet() (kind byte, data []byte, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.clipboard.hasPendingSet {
		return 0, nil, false
	}
	p.clipboard.hasPendingSet = false
	return p.clipboard.pendingSetKind, p.clipboard.pendingSetData, true
}
