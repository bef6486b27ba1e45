package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const handleBytes = 16

// Registry maps opaque handles to isolated sessions. Handles are random,
// never derived from anything identifying, and sessions expire after idle
// time so an abandoned handle cannot keep a seed cached forever.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	idleTTL  time.Duration
	now      func() time.Time
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates a registry with the given idle timeout. A zero or
// negative timeout disables expiry.
func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*registryEntry),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Create registers a session and returns its handle.
func (r *Registry) Create(s *Session) (string, error) {
	raw := make([]byte, handleBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", walleterr.Wrap(err, "generating session handle")
	}
	handle := hex.EncodeToString(raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[handle] = &registryEntry{session: s, lastSeen: r.now()}
	return handle, nil
}

// Get resolves a handle, touching its idle timer. Unknown and expired
// handles are indistinguishable to the caller.
func (r *Registry) Get(handle string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[handle]
	if !ok {
		return nil, walleterr.ErrSessionNotFound
	}

	if r.expiredLocked(entry) {
		entry.session.Close()
		delete(r.sessions, handle)
		return nil, walleterr.ErrSessionNotFound
	}

	entry.lastSeen = r.now()
	return entry.session, nil
}

// Remove closes and drops a session. Removing an unknown handle is a no-op.
func (r *Registry) Remove(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.sessions[handle]; ok {
		entry.session.Close()
		delete(r.sessions, handle)
	}
}

// Sweep closes every idle-expired session and reports how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for handle, entry := range r.sessions {
		if r.expiredLocked(entry) {
			entry.session.Close()
			delete(r.sessions, handle)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expiredLocked(entry *registryEntry) bool {
	if r.idleTTL <= 0 {
		return false
	}
	return r.now().Sub(entry.lastSeen) > r.idleTTL
}
