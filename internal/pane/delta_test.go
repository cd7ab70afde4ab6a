package pane

import (
	"testing"

	"github.com/paneserver/termd/internal/wire"
)

func TestSnapshotThenNoOpDeltaAtSameGeneration(t *testing.T) {
	p := newTestPane(t)
	p.Feed([]byte("hello"))

	snap, err := p.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) == 0 {
		t.Fatal("expected non-empty snapshot frame")
	}

	framed, ok, err := p.Delta(p.Generation())
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if !ok {
		t.Fatal("expected delta to be valid (not behind)")
	}
	if framed != nil {
		t.Error("expected nil frame when client is already at the current generation")
	}
}

func TestDeltaAfterFeedCarriesDirtyRows(t *testing.T) {
	p := newTestPane(t)

	if _, err := p.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	clientGen := p.Generation()

	p.Feed([]byte("world"))

	framed, ok, err := p.Delta(clientGen)
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if !ok {
		t.Fatal("expected delta to be valid")
	}
	if framed == nil {
		t.Fatal("expected a non-nil delta after new output")
	}

	delta, err := wire.DecodeDelta(framed)
	if err != nil {
		t.Fatalf("decode delta: %v", err)
	}
	if len(delta.DirtyRows) == 0 {
		t.Error("expected at least one dirty row in the delta")
	}
}

func TestDeltaBehindDirtyBaseRequiresResnapshot(t *testing.T) {
	p := newTestPane(t)

	if _, err := p.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	staleGen := p.Generation()

	p.Feed([]byte("x"))
	p.ForceFullResync()

	_, ok, err := p.Delta(staleGen)
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if ok {
		t.Error("expected a client behind the forced resync to be told to re-snapshot")
	}
}

func TestDeltaCacheReusedAcrossPolls(t *testing.T) {
	p := newTestPane(t)

	if _, err := p.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	clientGen := p.Generation()
	p.Feed([]byte("y"))

	first, ok, err := p.Delta(clientGen)
	if err != nil || !ok {
		t.Fatalf("first delta: ok=%v err=%v", ok, err)
	}

	second, ok, err := p.Delta(clientGen)
	if err != nil || !ok {
		t.Fatalf("second delta: ok=%v err=%v", ok, err)
	}

	if len(first) != len(second) {
		t.Error("expected the cached delta to be reused for a repeated poll")
	}
}

func TestScrollMarksViewportDirty(t *testing.T) {
	p := newTestPane(t)
	p.Feed([]byte("abc\r\ndef\r\n"))

	if _, err := p.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	clientGen := p.Generation()

	p.Scroll(1)

	framed, ok, err := p.Delta(clientGen)
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if !ok || framed == nil {
		t.Fatal("expected scroll to produce a non-empty delta")
	}

	delta, err := wire.DecodeDelta(framed)
	if err != nil {
		t.Fatalf("decode delta: %v", err)
	}
	if len(delta.DirtyRows) != p.rows {
		t.Errorf("expected every viewport row marked dirty after a scroll, got %d of %d", len(delta.DirtyRows), p.rows)
	}
}
