package session

import (
	"log/slog"
	"sync"
)

// Registry is the process-wide table of active capture sessions, keyed by
// window identifier. All lifecycle and event routing goes through it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// StartCapture creates a session for the window, seeded with rootTab.
// It fails when a session already exists for that window.
func (r *Registry) StartCapture(windowID, rootTab string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[windowID]; exists {
		return nil, NewError(CodeSessionExists, "capture already running for window "+windowID, nil)
	}
	s := newSession(windowID, rootTab)
	r.sessions[windowID] = s
	slog.Info("capture started", "window_id", windowID, "root_tab", rootTab)
	return s, nil
}

// StopCapture destroys the window's session. Stopping a window with no
// session is a no-op.
func (r *Registry) StopCapture(windowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[windowID]; ok {
		delete(r.sessions, windowID)
		slog.Info("capture stopped", "window_id", windowID)
	}
}

// Get returns the session for a window, if one exists.
func (r *Registry) Get(windowID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[windowID]
	return s, ok
}

// ResolveByTab returns the unique session whose scope contains tabID.
// A linear scan is fine: only a handful of windows trace concurrently.
// Events arriving after a stop resolve to nothing and are dropped by the
// caller, not treated as errors.
func (r *Registry) ResolveByTab(tabID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.TracksTab(tabID) {
			return s, true
		}
	}
	return nil, false
}

// OnTabCreated widens a session's scope when the new tab's opener is
// already tracked. SSO flows open IdP/SP pages via popups and redirect
// chains; without opener propagation those legs would be missed.
func (r *Registry) OnTabCreated(tabID, openerTabID string) {
	if openerTabID == "" {
		return
	}
	if s, ok := r.ResolveByTab(openerTabID); ok {
		s.AddTab(tabID)
		slog.Debug("tab tracked", "window_id", s.WindowID, "tab_id", tabID, "opener", openerTabID)
	}
}

// OnTabRemoved drops the tab from whichever session tracks it. The
// session itself survives, even when its scope becomes empty.
func (r *Registry) OnTabRemoved(tabID string) {
	if s, ok := r.ResolveByTab(tabID); ok {
		s.RemoveTab(tabID)
		slog.Debug("tab untracked", "window_id", s.WindowID, "tab_id", tabID)
	}
}

// OnWindowRemoved tears the session down, equivalent to StopCapture.
func (r *Registry) OnWindowRemoved(windowID string) {
	r.StopCapture(windowID)
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
