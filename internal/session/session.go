package session

import (
	"sync"
	"time"

	"github.com/dgnsrekt/saml_tracer/internal/saml"
)

// Session is one per-window capture session: the tracked-tab scope plus
// the message log. All state mutations go through the session's mutex so
// extract→append stays atomic even with events arriving on goroutines.
type Session struct {
	WindowID  string
	RootTab   string
	StartedAt time.Time

	mu    sync.Mutex
	tabs  map[string]struct{}
	store *store
}

// Status is a point-in-time summary exposed over the control channel.
type Status struct {
	Capturing    bool   `json:"capturing"`
	WindowID     string `json:"window_id,omitempty"`
	RootTab      string `json:"root_tab,omitempty"`
	TabCount     int    `json:"tab_count"`
	MessageCount int    `json:"message_count"`
}

func newSession(windowID, rootTab string) *Session {
	s := &Session{
		WindowID:  windowID,
		RootTab:   rootTab,
		StartedAt: time.Now().UTC(),
		tabs:      map[string]struct{}{rootTab: {}},
		store:     newStore(),
	}
	return s
}

// TracksTab reports whether tabID is in this session's scope.
func (s *Session) TracksTab(tabID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tabs[tabID]
	return ok
}

// AddTab widens the scope to a tab spawned from a tracked tab.
func (s *Session) AddTab(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tabID] = struct{}{}
}

// RemoveTab narrows the scope. The session survives an empty scope;
// only window close or an explicit stop destroys it.
func (s *Session) RemoveTab(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, tabID)
}

func (s *Session) TabCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

// Append stores a message unless its (kind, xml) dedup key was already
// seen. Returns true when stored.
func (s *Session) Append(m *Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.append(m)
}

// AttachResponse adds response metadata to the message correlated with
// requestID, if any.
func (s *Session) AttachResponse(requestID string, status int, headers map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.attachResponse(requestID, status, headers)
}

// Clear drops all messages. Ids are not reset.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.clear()
}

// Import runs each XML-looking blob through the same dedup/store/evict
// path as captured traffic and returns how many were stored. Imported and
// captured messages share one dedup space.
func (s *Session) Import(blobs []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	imported := 0
	for _, blob := range blobs {
		if !saml.LooksXML(blob) {
			continue
		}
		m := &Message{
			Kind:      saml.InferKindFromXML(blob),
			Transport: saml.TransportImport,
			Timestamp: time.Now().UTC(),
			XML:       blob,
			Encoding:  saml.EncodingNone,
		}
		if s.store.append(m) {
			imported++
		}
	}
	return imported
}

// Messages returns value copies of the log in insertion order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.snapshot()
}

// MessageCount returns the current log length.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.len()
}

// Status summarizes the session for the control channel.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Capturing:    true,
		WindowID:     s.WindowID,
		RootTab:      s.RootTab,
		TabCount:     len(s.tabs),
		MessageCount: s.store.len(),
	}
}
