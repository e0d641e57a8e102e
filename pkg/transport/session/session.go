// Package session implements the streamable-HTTP and SSE transports'
// session tracking: a TTL-evicted in-memory table of per-client
// sessions, keyed by the Mcp-Session-Id the client pins after
// initialize.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/stacklok/mcpgateway/pkg/transport/types"
)

// Factory builds a new session for id. Manager calls it on AddWithID.
type Factory func(id string) types.Session

// Manager is an in-memory, TTL-evicted session table. There is no
// persistence across restarts and no cross-process coordination: every
// gateway instance owns its own session table.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]types.Session
	ttl      time.Duration
	factory  Factory
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager starts a Manager with a background cleanup loop that
// evicts sessions idle longer than ttl.
func NewManager(ttl time.Duration, factory Factory) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	m := &Manager{
		sessions: make(map[string]types.Session),
		ttl:      ttl,
		factory:  factory,
		stopCh:   make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// AddWithID creates and stores a new session under id via the
// configured factory. It fails if id is already in use.
func (m *Manager) AddWithID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return fmt.Errorf("session %q already exists", id)
	}
	m.sessions[id] = m.factory(id)
	return nil
}

// ReplaceSession upserts sess under its own ID, replacing whatever
// session (of any concrete type) was previously stored there. Used by
// the streamable-HTTP transport to promote a placeholder session to a
// fully initialized one.
func (m *Manager) ReplaceSession(sess types.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if sess.ID() == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID()] = sess
	return nil
}

// Get returns the session for id and touches its last-activity
// timestamp. A miss reports ok=false.
func (m *Manager) Get(id string) (types.Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.Touch()
	return sess, true
}

// Delete removes a session, e.g. on a streamable-HTTP DELETE request.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %q does not exist", id)
	}
	delete(m.sessions, id)
	return nil
}

// Stop halts the background cleanup loop. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cleanupExpiredOnce()
		}
	}
}

func (m *Manager) cleanupExpiredOnce() {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.UpdatedAt().Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
