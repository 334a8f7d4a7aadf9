package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn stands in for a live websocket handle.
type fakeConn struct {
	mu       sync.Mutex
	identity string
	pushed   []interface{}
	closed   bool
	failPush bool
}

func newFakeConn(identity string) *fakeConn {
	return &fakeConn{identity: identity}
}

func (f *fakeConn) Identity() string { return f.identity }

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPush {
		return ErrConnClosed
	}
	f.pushed = append(f.pushed, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

func TestConnectReplacesNotDuplicates(t *testing.T) {
	r := NewPresenceRegistry()

	first := newFakeConn("a@x")
	replaced := r.Connect("a@x", "p1", first)
	assert.Nil(t, replaced)

	second := newFakeConn("a@x")
	replaced = r.Connect("a@x", "p1", second)
	require.NotNil(t, replaced)
	assert.Same(t, first, replaced.(*fakeConn))

	assert.Equal(t, 1, r.Len())

	conn, ok := r.Get("a@x")
	require.True(t, ok)
	assert.Same(t, second, conn.(*fakeConn))
}

func TestDisconnectIsIdempotent(t *testing.T) {
	r := NewPresenceRegistry()
	conn := newFakeConn("a@x")
	r.Connect("a@x", "p1", conn)

	assert.True(t, r.Disconnect("a@x", conn))
	assert.False(t, r.Disconnect("a@x", conn))
	assert.Equal(t, 0, r.Len())
}

func TestDisconnectIgnoresStaleHandle(t *testing.T) {
	r := NewPresenceRegistry()
	old := newFakeConn("a@x")
	r.Connect("a@x", "p1", old)

	fresh := newFakeConn("a@x")
	r.Connect("a@x", "p1", fresh)

	// The replaced connection's late teardown must not evict its replacement.
	assert.False(t, r.Disconnect("a@x", old))

	conn, ok := r.Get("a@x")
	require.True(t, ok)
	assert.Same(t, fresh, conn.(*fakeConn))
}

func TestValidateSender(t *testing.T) {
	r := NewPresenceRegistry()
	r.Connect("a@x", "secret1", newFakeConn("a@x"))

	assert.True(t, r.ValidateSender("a@x", "secret1"))
	assert.False(t, r.ValidateSender("a@x", "wrong"))
	assert.False(t, r.ValidateSender("b@x", "secret1"))
}

func TestDrainAllEmptiesRegistry(t *testing.T) {
	r := NewPresenceRegistry()
	r.Connect("a@x", "p1", newFakeConn("a@x"))
	r.Connect("b@x", "p2", newFakeConn("b@x"))
	r.Connect("c@x", "p3", newFakeConn("c@x"))

	conns := r.DrainAll()
	assert.Len(t, conns, 3)
	assert.Equal(t, 0, r.Len())
}
