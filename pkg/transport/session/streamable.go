package session

import (
	"sync"
	"time"
)

// StreamableSession tracks one streamable-HTTP client across the
// POST/GET/DELETE lifecycle: whether initialize has completed, and the
// monotonic SSE event id counter for its active stream, if any.
type StreamableSession struct {
	mu           sync.Mutex
	id           string
	initialized  bool
	lastEventID  uint64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewStreamableSession creates an un-initialized streamable-HTTP session.
func NewStreamableSession(id string) *StreamableSession {
	now := time.Now()
	return &StreamableSession{id: id, createdAt: now, updatedAt: now}
}

// ID implements types.Session.
func (s *StreamableSession) ID() string { return s.id }

// UpdatedAt implements types.Session.
func (s *StreamableSession) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Touch implements types.Session.
func (s *StreamableSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = time.Now()
}

// MarkInitialized records that this session's initialize call has
// completed.
func (s *StreamableSession) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// Initialized reports whether initialize has completed for this session.
func (s *StreamableSession) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// NextEventID returns the next monotonic SSE event id for this
// session's stream, starting at 1.
func (s *StreamableSession) NextEventID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventID++
	return s.lastEventID
}
