// Package lock provides per-session locking. The session state authority
// uses it to keep each session single-writer: verify-then-apply runs
// atomically per session while different sessions proceed in parallel.
package lock

import (
	"sync"
)

// sessionMutex wraps a mutex with reference counting for reuse.
type sessionMutex struct {
	mu       sync.Mutex
	refCount int
}

// SessionLock provides per-session mutual exclusion keyed by session ID.
type SessionLock struct {
	locks sync.Map // map[string]*sessionMutex
	pool  sync.Pool
}

// NewSessionLock creates a new SessionLock instance.
func NewSessionLock() *SessionLock {
	return &SessionLock{
		pool: sync.Pool{
			New: func() any {
				return &sessionMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given session ID.
func (sl *SessionLock) getLock(sessionID string) *sessionMutex {
	if v, ok := sl.locks.Load(sessionID); ok {
		return v.(*sessionMutex)
	}

	newLock := sl.pool.Get().(*sessionMutex)
	newLock.refCount = 0

	actual, loaded := sl.locks.LoadOrStore(sessionID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool.
		sl.pool.Put(newLock)
	}
	return actual.(*sessionMutex)
}

// Lock acquires the lock for a session.
func (sl *SessionLock) Lock(sessionID string) {
	lock := sl.getLock(sessionID)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a session.
func (sl *SessionLock) Unlock(sessionID string) {
	if v, ok := sl.locks.Load(sessionID); ok {
		lock := v.(*sessionMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (sl *SessionLock) TryLock(sessionID string) bool {
	lock := sl.getLock(sessionID)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes fn while holding the session's lock.
func (sl *SessionLock) WithLock(sessionID string, fn func() error) error {
	sl.Lock(sessionID)
	defer sl.Unlock(sessionID)
	return fn()
}
