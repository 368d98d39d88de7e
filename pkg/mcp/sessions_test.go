package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionRegistry_RegisterAndLookup(t *testing.T) {
	r := NewSessionRegistry()

	r.Register("client-1", "session-abc")
	sid, ok := r.SessionFor("client-1")
	assert.True(t, ok)
	assert.Equal(t, "session-abc", sid)
}

func TestSessionRegistry_NotFound(t *testing.T) {
	r := NewSessionRegistry()

	_, ok := r.SessionFor("unknown")
	assert.False(t, ok)
}

func TestSessionRegistry_Overwrite(t *testing.T) {
	r := NewSessionRegistry()

	r.Register("client-1", "session-old")
	r.Register("client-1", "session-new")

	sid, ok := r.SessionFor("client-1")
	assert.True(t, ok)
	assert.Equal(t, "session-new", sid)
}

func TestSessionRegistry_Watches(t *testing.T) {
	r := NewSessionRegistry()

	r.Watch("client-2", "wf-a")
	r.Watch("client-1", "wf-a")
	r.Watch("client-1", "wf-b")
	r.Watch("client-1", "wf-b")

	assert.Equal(t, []string{"client-1", "client-2"}, r.Watchers("wf-a"))
	assert.Equal(t, []string{"wf-a", "wf-b"}, r.Watching("client-1"))

	r.Unwatch("client-1", "wf-a")
	r.Unwatch("client-9", "wf-z")
	assert.Equal(t, []string{"client-2"}, r.Watchers("wf-a"))
	assert.Empty(t, r.Watchers("wf-z"))
	assert.Equal(t, []string{}, r.Watching("client-3"))
}

func TestSessionRegistry_Remove(t *testing.T) {
	r := NewSessionRegistry()

	r.Register("client-1", "session-abc")
	r.Register("client-2", "session-abc")
	r.Register("client-3", "session-xyz")
	r.Watch("client-1", "wf-a")
	r.Watch("client-3", "wf-a")

	r.Remove("session-abc")

	_, ok := r.SessionFor("client-1")
	assert.False(t, ok, "client-1 should be removed")

	_, ok = r.SessionFor("client-2")
	assert.False(t, ok, "client-2 should be removed")

	sid, ok := r.SessionFor("client-3")
	assert.True(t, ok, "client-3 should still exist")
	assert.Equal(t, "session-xyz", sid)
	assert.Equal(t, []string{"client-3"}, r.Watchers("wf-a"))
}
