package wizard

import (
	"sync"
	"time"
)

// Cache is the process-local session repository. It is the sole mutator of
// in-memory session state; transitions that race (user input, watcher ticks,
// web-app callbacks) are serialized through its lock, and step changes use
// CompareAndSwapStep so a competing path observes the move and backs off.
type Cache struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewCache constructs an empty session cache.
func NewCache() *Cache {
	return &Cache{sessions: make(map[int64]*Session)}
}

// Put installs a session for its user, replacing any existing one. The
// replaced session's watcher, if any, is returned so the caller can cancel
// it outside the lock.
func (c *Cache) Put(s *Session) *Watcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	var prev *Watcher
	if old, ok := c.sessions[s.UserID]; ok {
		prev = old.watcher
	}
	s.UpdatedAt = time.Now()
	c.sessions[s.UserID] = s
	return prev
}

// Snapshot returns a copy of the user's session, or false when absent.
// The copy never includes the watcher handle.
func (c *Cache) Snapshot(userID int64) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return Session{}, false
	}
	cp := *s
	cp.watcher = nil
	return cp, true
}

// Has reports whether the user currently has a session.
func (c *Cache) Has(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[userID]
	return ok
}

// Step returns the user's current step.
func (c *Cache) Step(userID int64) (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[userID]; ok {
		return s.Step, true
	}
	return "", false
}

// Update runs fn against the live session under the cache lock. It reports
// whether a session existed. fn must not block.
func (c *Cache) Update(userID int64, fn func(*Session)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return false
	}
	fn(s)
	s.UpdatedAt = time.Now()
	return true
}

// CompareAndSwapStep atomically moves the session from one step to another.
// It fails when the session is absent or has already moved on, which is how
// competing completion paths discover they lost the race.
func (c *Cache) CompareAndSwapStep(userID int64, from, to Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok || s.Step != from {
		return false
	}
	s.Step = to
	s.UpdatedAt = time.Now()
	return true
}

// SwapWatcher installs a watcher for the session and returns the previous
// one so the caller can cancel it. At most one watcher is active per
// session; installing nil clears the slot.
func (c *Cache) SwapWatcher(userID int64, w *Watcher) (*Watcher, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return nil, false
	}
	prev := s.watcher
	s.watcher = w
	return prev, true
}

// Remove deletes the session and returns it together with its watcher so the
// caller can cancel the watcher and wipe secrets outside the lock.
func (c *Cache) Remove(userID int64) (*Session, *Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return nil, nil
	}
	delete(c.sessions, userID)
	w := s.watcher
	s.watcher = nil
	return s, w
}

// Len reports the number of live sessions, used by diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
