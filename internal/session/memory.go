package session

import (
	"context"
	"sync"
	"time"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped on access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

// Save stores sess under key until ttl elapses.
func (s *MemoryStore) Save(ctx context.Context, key string, sess *models.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[key] = memoryEntry{
		session:   *sess,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

// Load returns a copy of the session, or models.ErrSessionNotFound when it is missing or past its ttl.
func (s *MemoryStore) Load(ctx context.Context, key string) (*models.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[key]
	s.mu.RUnlock()

	if !ok {
		return nil, models.ErrSessionNotFound
	}

	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}

	sess := entry.session
	return &sess, nil
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)

	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
