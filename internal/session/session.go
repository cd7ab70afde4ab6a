// Package session owns the pane registry, window groupings, and the set of
// connected clients for one running server: which panes exist, how they are
// grouped into windows, and which client (if any) is currently master.
package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paneserver/termd/internal/pane"
)

// Window groups an ordered list of pane IDs under an optional layout
// template id (§3.5).
type Window struct {
	ID       string
	PaneIDs  []string
	LayoutID string
}

// Session is the server's single pane registry, window map, and client set.
// Mutation (add/remove pane, change master, window membership) is
// serialized by this struct's lock; panes are independently locked.
type Session struct {
	mu sync.RWMutex

	panes       map[string]*pane.Pane
	windows     map[string]*Window
	windowOrder []string
	clients     map[string]bool
	master      string
}

// New returns an empty session.
func New() *Session {
	return &Session{
		panes:   make(map[string]*pane.Pane),
		windows: make(map[string]*Window),
		clients: make(map[string]bool),
	}
}

// AddPane registers a running pane under its own ID.
func (s *Session) AddPane(p *pane.Pane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panes[p.ID] = p
}

// Pane looks up a pane by id.
func (s *Session) Pane(id string) (*pane.Pane, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.panes[id]
	return p, ok
}

// Panes returns every registered pane, sorted by id for deterministic
// iteration (e.g. the `panes` IPC command and the PTY multiplexer's fd
// vector).
func (s *Session) Panes() []*pane.Pane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pane.Pane, 0, len(s.panes))
	for _, p := range s.panes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemovePane closes and unregisters a pane, removing it from every window
// that referenced it.
func (s *Session) RemovePane(id string) error {
	s.mu.Lock()
	p, ok := s.panes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session: no such pane %q", id)
	}
	delete(s.panes, id)
	for _, w := range s.windows {
		w.PaneIDs = removeString(w.PaneIDs, id)
	}
	s.mu.Unlock()

	return p.Close()
}

// CreateWindow registers a new, initially empty window.
func (s *Session) CreateWindow(id, layoutID string) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &Window{ID: id, LayoutID: layoutID}
	s.windows[id] = w
	s.windowOrder = append(s.windowOrder, id)
	return w
}

// Window looks up a window by id.
func (s *Session) Window(id string) (*Window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[id]
	return w, ok
}

// Windows returns every window in creation order.
func (s *Session) Windows() []*Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Window, 0, len(s.windowOrder))
	for _, id := range s.windowOrder {
		out = append(out, s.windows[id])
	}
	return out
}

// RemoveWindow unregisters a window without touching the panes it held.
func (s *Session) RemoveWindow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("session: no such window %q", id)
	}
	delete(s.windows, id)
	s.windowOrder = removeString(s.windowOrder, id)
	return nil
}

// AddPaneToWindow appends a pane id to a window's ordered list. Both must
// already be registered.
func (s *Session) AddPaneToWindow(windowID, paneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[windowID]
	if !ok {
		return fmt.Errorf("session: no such window %q", windowID)
	}
	if _, ok := s.panes[paneID]; !ok {
		return fmt.Errorf("session: no such pane %q", paneID)
	}
	for _, id := range w.PaneIDs {
		if id == paneID {
			return nil
		}
	}
	w.PaneIDs = append(w.PaneIDs, paneID)
	return nil
}

// RemovePaneFromWindow drops a pane id from a window's ordered list without
// closing the pane itself.
func (s *Session) RemovePaneFromWindow(windowID, paneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[windowID]
	if !ok {
		return fmt.Errorf("session: no such window %q", windowID)
	}
	w.PaneIDs = removeString(w.PaneIDs, paneID)
	return nil
}

// RegisterClient records a newly connected client.
func (s *Session) RegisterClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = true
}

// UnregisterClient drops a disconnected client. If it was master, the
// session is left with no master; the caller (transport layer) decides
// whether and how to promote a replacement.
func (s *Session) UnregisterClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
	if s.master == clientID {
		s.master = ""
	}
}

// ClientCount returns the number of currently connected clients.
func (s *Session) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// SetMaster designates clientID as master. The client must already be
// registered.
func (s *Session) SetMaster(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clients[clientID] {
		return fmt.Errorf("session: client %q is not connected", clientID)
	}
	s.master = clientID
	return nil
}

// Master returns the current master client id, or "" if none.
func (s *Session) Master() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.master
}

// IsMaster reports whether clientID is the current master.
func (s *Session) IsMaster(clientID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.master != "" && s.master == clientID
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
