// Package memory provides an in-memory store.Store for tests and local
// development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	points "github.com/xraph/points"
	"github.com/xraph/points/account"
	pointsstore "github.com/xraph/points/store"
)

// compile-time interface check
var _ pointsstore.Store = (*Store)(nil)

// Store keeps accounts in a map guarded by a mutex. Every Apply is atomic
// with respect to every other call.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
	clock    clockwork.Clock
	closed   bool
}

// Option configures a memory store.
type Option func(*Store)

// WithClock sets the clock used for server timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]*account.Account),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate is a no-op.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return points.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// GetAccount returns a copy of the stored account.
func (s *Store) GetAccount(_ context.Context, userID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, points.ErrStoreClosed
	}
	a, ok := s.accounts[userID]
	if !ok {
		return nil, points.ErrRecordNotFound
	}
	return a.Clone(), nil
}

// CreateAccount stores a copy of a.
func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return points.ErrStoreClosed
	}
	if _, exists := s.accounts[a.UserID]; exists {
		return points.ErrAlreadyExists
	}
	c := a.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.accounts[a.UserID] = c
	return nil
}

// Apply commits m to the user's account. Nothing changes if a precondition
// fails or a balance would go below zero or overflow.
func (s *Store) Apply(_ context.Context, userID string, m *account.Mutation) (*account.Account, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, points.ErrStoreClosed
	}
	a, ok := s.accounts[userID]
	if !ok {
		return nil, points.ErrRecordNotFound
	}

	if err := m.Check(a); err != nil {
		return nil, err
	}

	m.Apply(a, s.now())
	return a.Clone(), nil
}

// Put replaces the stored account, bypassing all checks. Tests use it to
// seed records in shapes Apply would never produce.
func (s *Store) Put(a *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.UserID] = a.Clone()
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}
