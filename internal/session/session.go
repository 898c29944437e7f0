// Package session keeps authenticated sessions on the server side.
// Clients hold only an opaque random token; stores are keyed by the token's
// SHA-256 hash so a leaked store does not reveal usable tokens.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

const tokenLength = 32

// Store persists session snapshots under a hashed key for a fixed lifetime.
// Load returns models.ErrSessionNotFound for unknown or expired keys.
type Store interface {
	Save(ctx context.Context, key string, sess *models.Session, ttl time.Duration) error
	Load(ctx context.Context, key string) (*models.Session, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Manager issues, resolves and destroys sessions.
type Manager struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
}

// NewManager returns a Manager that gives every session a lifetime of maxAge.
func NewManager(store Store, maxAge time.Duration) *Manager {
	return &Manager{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// MaxAge is the fixed lifetime of every session.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Create stores sess and returns the token the client must present.
// The expiry is set once here and never extended.
func (m *Manager) Create(ctx context.Context, sess *models.Session) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(m.maxAge)

	if err := m.store.Save(ctx, HashToken(token), sess, m.maxAge); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	return token, nil
}

// Get loads the session behind token. Expired sessions are deleted and reported as models.ErrSessionExpired.
func (m *Manager) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.ErrSessionNotFound
	}

	sess, err := m.store.Load(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}

	if m.now().After(sess.ExpiresAt) {
		_ = m.store.Delete(ctx, HashToken(token))
		return nil, models.ErrSessionExpired
	}

	return sess, nil
}

// Destroy removes the session. Destroying an unknown token is not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := m.store.Delete(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("%w: %w", models.ErrSessionDestroy, err)
	}

	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the store key for a client token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
