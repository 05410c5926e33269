// Package session holds the identity of whoever is using one portal client
// (a browser, or the CLI) and persists it across reloads.
//
// A Store is created empty, rehydrated once by Initialize, and from then on
// changed only by Login and Logout, which replace the identity wholesale.
// The Ready channel closes exactly once, when the first Initialize finishes;
// consumers that must not act on an unrehydrated session wait on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

var (
	// ErrInvalidIdentity is returned by Login for an identity that could not
	// be rehydrated later (no positive id).
	ErrInvalidIdentity = errors.New("session: invalid identity")

	// ErrPersist wraps backend write failures from Login and Logout. The
	// in-memory state has already been updated when it is returned.
	ErrPersist = errors.New("session: persist failed")
)

// Store is the single source of truth for who is using a client. It is safe
// for concurrent use.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	identity *model.Identity

	readyOnce sync.Once
	ready     chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded-mode diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an anonymous, not-yet-ready store persisting to backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize rehydrates the identity from the backend. A missing, unreadable
// or malformed record leaves the session anonymous. The store is ready when
// Initialize returns, whatever happened.
//
// Calling Initialize again re-reads storage, which is how a reload is
// simulated; readiness is unaffected.
func (s *Store) Initialize(ctx context.Context) {
	defer s.markReady()

	data, err := s.backend.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			s.logger.Debug("session rehydration failed, continuing anonymous", "err", err)
		}
		s.replace(nil)
		return
	}

	id, err := model.DecodeIdentity(data)
	if err != nil {
		s.logger.Debug("discarding unusable session record", "err", err)
		s.replace(nil)
		return
	}
	s.replace(&id)
}

// Login makes id the current identity and persists it. The in-memory state
// changes even when persisting fails; the returned error then wraps
// ErrPersist and is not retried.
func (s *Store) Login(ctx context.Context, id model.Identity) error {
	if !id.WellFormed() {
		return ErrInvalidIdentity
	}
	data, err := model.EncodeIdentity(id)
	if err != nil {
		return err
	}

	s.replace(&id)

	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Logout clears the identity in memory and in storage. As with Login, a
// storage failure is reported but memory is already cleared.
func (s *Store) Logout(ctx context.Context) error {
	s.replace(nil)

	if err := s.backend.Delete(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Identity returns a copy of the current identity and whether one is present.
func (s *Store) Identity() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// CurrentRoleTier derives the privilege ordinal from the current identity.
func (s *Store) CurrentRoleTier() model.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return model.TierAnonymous
	}
	return s.identity.Tier()
}

// Ready is closed once the first Initialize has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// IsReady reports whether Ready has been closed.
func (s *Store) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Store) replace(id *model.Identity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}
