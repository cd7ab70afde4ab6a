package ptymux

import (
	"context"
	"testing"
	"time"

	"github.com/paneserver/termd/internal/pane"
)

type fakeSource struct {
	panes []*pane.Pane
}

func (f *fakeSource) Panes() []*pane.Pane { return f.panes }

func newTestPane(t *testing.T) *pane.Pane {
	t.Helper()
	p, err := pane.New(pane.Options{Command: []string{"/bin/sh", "-c", "cat"}})
	if err != nil {
		t.Fatalf("pane.New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestRunFeedsChildOutputIntoPane(t *testing.T) {
	p := newTestPane(t)
	src := &fakeSource{panes: []*pane.Pane{p}}
	m := New(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	before := p.Generation()
	if _, err := p.Write([]byte("hello world\n")); err != nil {
		t.Fatalf("write to pane: %v", err)
	}

	select {
	case <-m.Wake():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a wake signal after child output")
	}

	if p.Generation() <= before {
		t.Error("expected the pane generation to advance after the child echoed output")
	}
}

func TestRunWithNoPanesDoesNotBusyLoop(t *testing.T) {
	src := &fakeSource{}
	m := New(src)

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	time.Sleep(250 * time.Millisecond)
	cancel()
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p := newTestPane(t)
	src := &fakeSource{panes: []*pane.Pane{p}}
	m := New(src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected Run to return promptly after context cancellation")
	}
}
