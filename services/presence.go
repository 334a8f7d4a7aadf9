package services

import (
	"crypto/subtle"
	"hash/fnv"
	"sync"
)

// ConnectionEntry exists only while a connection is open. The secret is the
// credential presented at connect time; send calls re-validate against it.
type ConnectionEntry struct {
	Email  string
	Secret string
	Conn   ClientConn
}

const presenceShards = 32

type presenceShard struct {
	mu      sync.RWMutex
	entries map[string]*ConnectionEntry
}

// PresenceRegistry maps identity to its single live connection. Sharded by
// identity so unrelated clients never contend on one lock.
type PresenceRegistry struct {
	shards [presenceShards]*presenceShard
}

func NewPresenceRegistry() *PresenceRegistry {
	r := &PresenceRegistry{}
	for i := range r.shards {
		r.shards[i] = &presenceShard{entries: make(map[string]*ConnectionEntry)}
	}
	return r
}

func (r *PresenceRegistry) shard(identity string) *presenceShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return r.shards[h.Sum32()%presenceShards]
}

// Connect registers identity -> conn, last-connect-wins. The replaced handle,
// if any, is returned so the caller can close it outside the lock.
func (r *PresenceRegistry) Connect(email, secret string, conn ClientConn) (replaced ClientConn) {
	s := r.shard(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.entries[email]; ok {
		replaced = prior.Conn
	}
	s.entries[email] = &ConnectionEntry{Email: email, Secret: secret, Conn: conn}
	return replaced
}

// Disconnect removes the entry for email only if it still holds this exact
// handle, which makes cleanup idempotent and keeps a stale connection's late
// teardown from evicting its replacement.
func (r *PresenceRegistry) Disconnect(email string, conn ClientConn) bool {
	s := r.shard(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok || entry.Conn != conn {
		return false
	}
	delete(s.entries, email)
	return true
}

func (r *PresenceRegistry) Get(email string) (ClientConn, bool) {
	s := r.shard(email)
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[email]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// ValidateSender reports whether email currently has a live entry whose
// secret matches. Constant-time compare; the secret is still a credential.
func (r *PresenceRegistry) ValidateSender(email, secret string) bool {
	s := r.shard(email)
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[email]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(entry.Secret), []byte(secret)) == 1
}

func (r *PresenceRegistry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// DrainAll empties the registry and returns every live handle, used at
// shutdown to force-disconnect the fleet.
func (r *PresenceRegistry) DrainAll() []ClientConn {
	var conns []ClientConn
	for _, s := range r.shards {
		s.mu.Lock()
		for email, entry := range s.entries {
			conns = append(conns, entry.Conn)
			delete(s.entries, email)
		}
		s.mu.Unlock()
	}
	return conns
}
