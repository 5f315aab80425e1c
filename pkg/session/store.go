// Package session keeps short-lived in-memory sessions, such as open editors and
// running players, addressable by id.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or expired session ids
var ErrNotFound = errors.New("session not found")

type entry[T any] struct {
	value    T
	lastSeen time.Time
}

// Store is a registry of sessions of one kind
type Store[T any] struct {
	mu       sync.RWMutex
	sessions map[string]*entry[T]
	prefix   string
	now      func() time.Time
}

// NewStore creates a registry whose ids start with prefix
func NewStore[T any](prefix string) *Store[T] {
	return &Store[T]{
		sessions: make(map[string]*entry[T]),
		prefix:   prefix,
		now:      time.Now,
	}
}

// Create registers value and returns its session id
func (s *Store[T]) Create(value T) string {
	id := s.prefix + "-" + uuid.New().String()

	s.mu.Lock()
	s.sessions[id] = &entry[T]{value: value, lastSeen: s.now()}
	s.mu.Unlock()

	return id
}

// Get returns the session value and marks it as recently used
func (s *Store[T]) Get(id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.value, nil
}

// Delete ends a session. Returns false when it did not exist.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len is the number of live sessions
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear ends every session
func (s *Store[T]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*entry[T])
	return n
}

// Expire removes sessions idle for longer than maxIdle
func (s *Store[T]) Expire(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// ExpireRoutine runs Expire on a schedule until ctx is done
func (s *Store[T]) ExpireRoutine(ctx context.Context, interval, maxIdle time.Duration, onExpire func(n int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Expire(maxIdle); n > 0 && onExpire != nil {
				onExpire(n)
			}
		}
	}
}
