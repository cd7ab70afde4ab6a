package session

import (
	"testing"

	"github.com/paneserver/termd/internal/pane"
)

func newTestPane(t *testing.T, id string) *pane.Pane {
	t.Helper()
	p, err := pane.New(pane.Options{ID: id, Command: []string{"cat"}})
	if err != nil {
		t.Fatalf("pane.New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestAddAndLookupPane(t *testing.T) {
	s := New()
	p := newTestPane(t, "pane-1")
	s.AddPane(p)

	got, ok := s.Pane("pane-1")
	if !ok || got != p {
		t.Fatal("expected to find the registered pane")
	}
}

func TestPanesSortedByID(t *testing.T) {
	s := New()
	s.AddPane(newTestPane(t, "b"))
	s.AddPane(newTestPane(t, "a"))
	s.AddPane(newTestPane(t, "c"))

	panes := s.Panes()
	if len(panes) != 3 {
		t.Fatalf("expected 3 panes, got %d", len(panes))
	}
	if panes[0].ID != "a" || panes[1].ID != "b" || panes[2].ID != "c" {
		t.Errorf("expected sorted order a,b,c, got %s,%s,%s", panes[0].ID, panes[1].ID, panes[2].ID)
	}
}

func TestRemovePaneClosesAndDropsFromWindows(t *testing.T) {
	s := New()
	p := newTestPane(t, "pane-1")
	s.AddPane(p)
	s.CreateWindow("win-1", "")
	if err := s.AddPaneToWindow("win-1", "pane-1"); err != nil {
		t.Fatalf("add pane to window: %v", err)
	}

	if err := s.RemovePane("pane-1"); err != nil {
		t.Fatalf("remove pane: %v", err)
	}

	if _, ok := s.Pane("pane-1"); ok {
		t.Error("expected pane to be unregistered")
	}
	w, _ := s.Window("win-1")
	if len(w.PaneIDs) != 0 {
		t.Errorf("expected pane removed from window, got %v", w.PaneIDs)
	}
}

func TestRemovePaneUnknown(t *testing.T) {
	s := New()
	if err := s.RemovePane("nope"); err == nil {
		t.Error("expected an error removing an unregistered pane")
	}
}

func TestWindowsInCreationOrder(t *testing.T) {
	s := New()
	s.CreateWindow("w1", "")
	s.CreateWindow("w2", "layout-a")

	windows := s.Windows()
	if len(windows) != 2 || windows[0].ID != "w1" || windows[1].ID != "w2" {
		t.Errorf("expected creation order w1,w2, got %v", windows)
	}
	if windows[1].LayoutID != "layout-a" {
		t.Errorf("expected layout id preserved, got %q", windows[1].LayoutID)
	}
}

func TestAddPaneToWindowRejectsUnknownPane(t *testing.T) {
	s := New()
	s.CreateWindow("w1", "")
	if err := s.AddPaneToWindow("w1", "ghost"); err == nil {
		t.Error("expected an error adding an unregistered pane to a window")
	}
}

func TestAddPaneToWindowIsIdempotent(t *testing.T) {
	s := New()
	s.AddPane(newTestPane(t, "pane-1"))
	s.CreateWindow("w1", "")

	if err := s.AddPaneToWindow("w1", "pane-1"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := s.AddPaneToWindow("w1", "pane-1"); err != nil {
		t.Fatalf("second add: %v", err)
	}

	w, _ := s.Window("w1")
	if len(w.PaneIDs) != 1 {
		t.Errorf("expected pane listed once, got %v", w.PaneIDs)
	}
}

func TestMasterClientLifecycle(t *testing.T) {
	s := New()

	if err := s.SetMaster("client-1"); err == nil {
		t.Error("expected an error promoting an unconnected client")
	}

	s.RegisterClient("client-1")
	if err := s.SetMaster("client-1"); err != nil {
		t.Fatalf("set master: %v", err)
	}
	if !s.IsMaster("client-1") {
		t.Error("expected client-1 to be master")
	}
	if s.Master() != "client-1" {
		t.Errorf("expected Master() to return client-1, got %q", s.Master())
	}

	s.UnregisterClient("client-1")
	if s.Master() != "" {
		t.Errorf("expected no master after the master disconnects, got %q", s.Master())
	}
	if s.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", s.ClientCount())
	}
}

func TestRemoveWindowUnknown(t *testing.T) {
	s := New()
	if err := s.RemoveWindow("nope"); err == nil {
		t.Error("expected an error removing an unregistered window")
	}
}
