package session

import (
	"github.com/dgnsrekt/saml_tracer/internal/saml"
)

// MaxMessages bounds the per-session message log. When the bound is
// exceeded the oldest message (lowest id) is evicted, its dedup key is
// released, and its request-correlation entry is dropped.
const MaxMessages = 1000

type dedupKey struct {
	kind saml.Kind
	xml  string
}

// store is the ordered, deduplicated, size-bounded message log of one
// capture session. It is not safe for concurrent use on its own; the
// owning Session serializes access.
type store struct {
	messages  []*Message
	nextID    int64
	seen      map[dedupKey]struct{}
	byRequest map[string]*Message
}

func newStore() *store {
	return &store{
		nextID:    1,
		seen:      make(map[dedupKey]struct{}),
		byRequest: make(map[string]*Message),
	}
}

// append assigns the next id and stores the message, unless its
// (kind, xml) pair was already seen. Returns false for duplicates.
func (s *store) append(m *Message) bool {
	key := dedupKey{kind: m.Kind, xml: m.XML}
	if _, dup := s.seen[key]; dup {
		return false
	}

	m.ID = s.nextID
	s.nextID++
	s.messages = append(s.messages, m)
	s.seen[key] = struct{}{}
	if m.RequestID != "" {
		// First message wins the correlation slot; header-pass extras from
		// the same exchange do not steal response attachment.
		if _, taken := s.byRequest[m.RequestID]; !taken {
			s.byRequest[m.RequestID] = m
		}
	}

	if len(s.messages) > MaxMessages {
		evicted := s.messages[0]
		s.messages = s.messages[1:]
		delete(s.seen, dedupKey{kind: evicted.Kind, xml: evicted.XML})
		if evicted.RequestID != "" && s.byRequest[evicted.RequestID] == evicted {
			delete(s.byRequest, evicted.RequestID)
		}
	}
	return true
}

// attachResponse adds response metadata to the message correlated with
// requestID. Attachment never changes ordering, id, or dedup key.
// Unknown request ids are a no-op.
func (s *store) attachResponse(requestID string, status int, headers map[string]string) bool {
	m, ok := s.byRequest[requestID]
	if !ok {
		return false
	}
	m.Status = status
	m.ResponseHeaders = headers
	return true
}

// clear empties the log, dedup set, and correlation index. The id counter
// keeps advancing from its pre-clear value.
func (s *store) clear() {
	s.messages = nil
	s.seen = make(map[dedupKey]struct{})
	s.byRequest = make(map[string]*Message)
}

func (s *store) len() int {
	return len(s.messages)
}

// snapshot returns value copies of all messages in insertion order.
func (s *store) snapshot() []Message {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}
