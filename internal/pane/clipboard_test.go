package pane

import "testing"

func TestClipboardStoreThenTakePendingSet(t *testing.T) {
	p := newTestPane(t)

	p.onClipboardStore('c', []byte("copied text"))

	kind, data, ok := p.TakePendingClipboardSet()
	if !ok {
		t.Fatal("expected a pending clipboard set")
	}
	if kind != 'c' {
		t.Errorf("expected kind 'c', got %q", kind)
	}
	if string(data) != "copied text" {
		t.Errorf("expected 'copied text', got %q", data)
	}

	if _, _, ok := p.TakePendingClipboardSet(); ok {
		t.Error("expected the pending set to be cleared after being taken")
	}
}

func TestClipboardLoadThenResolve(t *testing.T) {
	p := newTestPane(t)

	p.onClipboardLoad('c', "\x1b\\")

	kind, ok := p.PendingClipboardGet()
	if !ok {
		t.Fatal("expected a pending clipboard get")
	}
	if kind != 'c' {
		t.Errorf("expected kind 'c', got %q", kind)
	}

	// A second poll before resolution should not resend the request.
	if _, ok := p.PendingClipboardGet(); ok {
		t.Error("expected the get to be marked sent after the first poll")
	}

	p.ResolveClipboardGet('c', []byte("pasted"))

	p.mu.Lock()
	hasPending := p.clipboard.hasPendingGet
	p.mu.Unlock()
	if hasPending {
		t.Error("expected pending get to be cleared after resolution")
	}
}

func TestClipboardExpireAfterTimeout(t *testing.T) {
	p := newTestPane(t)

	p.onClipboardLoad('c', "\x1b\\")
	p.mu.Lock()
	p.clipboard.getStarted = p.clipboard.getStarted.Add(-clipboardGetTimeout - 1)
	p.mu.Unlock()

	p.ExpireClipboardGets()

	p.mu.Lock()
	hasPending := p.clipboard.hasPendingGet
	p.mu.Unlock()
	if hasPending {
		t.Error("expected an overdue pending get to be expired")
	}
}

func TestClipboardResolveWrongKindIgnored(t *testing.T) {
	p := newTestPane(t)

	p.onClipboardLoad('c', "\x1b\\")
	p.PendingClipboardGet()
	p.ResolveClipboardGet('p', []byte("wrong selector"))

	p.mu.Lock()
	hasPending := p.clipboard.hasPendingGet
	p.mu.Unlock()
	if !hasPending {
		t.Error("expected resolution for a non-matching kind to be ignored")
	}
}
