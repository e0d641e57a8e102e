package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/mcpgateway/pkg/transport/types"
)

func streamableFactory(id string) types.Session {
	return NewStreamableSession(id)
}

func TestAddGetDelete(t *testing.T) {
	m := NewManager(time.Hour, streamableFactory)
	defer m.Stop()

	require.NoError(t, m.AddWithID("foo"))
	sess, ok := m.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "foo", sess.ID())

	require.NoError(t, m.Delete("foo"))
	_, ok = m.Get("foo")
	assert.False(t, ok)
}

func TestAddDuplicateFails(t *testing.T) {
	m := NewManager(time.Hour, streamableFactory)
	defer m.Stop()

	require.NoError(t, m.AddWithID("dup"))
	err := m.AddWithID("dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestReplaceSessionUpsertsAndValidates(t *testing.T) {
	m := NewManager(time.Hour, streamableFactory)
	defer m.Stop()

	require.Error(t, m.ReplaceSession(nil))

	s := NewStreamableSession("replaced")
	require.NoError(t, m.ReplaceSession(s))
	got, ok := m.Get("replaced")
	require.True(t, ok)
	assert.Equal(t, "replaced", got.ID())
}

func TestCleanupExpiredOnce(t *testing.T) {
	m := NewManager(50*time.Millisecond, streamableFactory)
	defer m.Stop()

	require.NoError(t, m.AddWithID("old"))
	sess, _ := m.Get("old")
	streamable := sess.(*StreamableSession)
	streamable.updatedAt = time.Now().Add(-time.Hour)

	m.cleanupExpiredOnce()
	_, ok := m.Get("old")
	assert.False(t, ok)
}

func TestStreamableSessionEventIDsAreMonotonic(t *testing.T) {
	s := NewStreamableSession("x")
	assert.Equal(t, uint64(1), s.NextEventID())
	assert.Equal(t, uint64(2), s.NextEventID())
	assert.False(t, s.Initialized())
	s.MarkInitialized()
	assert.True(t, s.Initialized())
}
