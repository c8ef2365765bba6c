// Package tokenstore keeps the client side session: the access and refresh
// tokens, the identity hint of the logged in user and an observable flag
// telling whether a session exists.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Keys under which the session is persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserEmail    = "userEmail"
)

var ErrEmptyToken = errors.New("access and refresh tokens must both be set")

// Backend persists string values. Implementations must apply SetMany
// atomically with respect to readers of the same backend.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type Store struct {
	backend Backend

	// mu orders token writes against multi key reads.
	mu sync.RWMutex

	subsMu        sync.Mutex
	authenticated bool
	subs          map[uint64]chan bool
	nextSubID     uint64
}

// Open creates a store on top of the backend and seeds the authenticated
// flag from the tokens the backend already holds.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{
		backend: backend,
		subs:    make(map[uint64]chan bool),
	}

	ok, err := s.HasTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading persisted session: %w", err)
	}
	s.authenticated = ok

	return s, nil
}

// SetTokens writes both tokens and flips the authenticated flag to true.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if access == "" || refresh == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.SetMany(ctx, map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	})
	if err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}

	s.publish(true)

	return nil
}

func (s *Store) AccessToken(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, KeyRefreshToken)
}

func (s *Store) SetIdentity(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.SetMany(ctx, map[string]string{KeyUserEmail: email}); err != nil {
		return fmt.Errorf("storing identity: %w", err)
	}

	return nil
}

func (s *Store) Identity(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, KeyUserEmail)
}

// ClearTokens removes the tokens and the identity hint and flips the
// authenticated flag to false. The flag is flipped even if the backend fails,
// so a broken store never keeps a session alive.
func (s *Store) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUserEmail)
	s.publish(false)
	if err != nil {
		return fmt.Errorf("deleting tokens: %w", err)
	}

	return nil
}

// HasTokens reports whether both tokens are present.
func (s *Store) HasTokens(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, hasAccess, err := s.get(ctx, KeyAccessToken)
	if err != nil {
		return false, err
	}

	_, hasRefresh, err := s.get(ctx, KeyRefreshToken)
	if err != nil {
		return false, err
	}

	return hasAccess && hasRefresh, nil
}

// Authenticated returns the last published value of the authenticated flag.
func (s *Store) Authenticated() bool {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	return s.authenticated
}

// Subscribe returns a channel that receives the current flag and every later
// change. A slow reader only sees the latest value. The returned func stops
// the subscription and closes the channel.
func (s *Store) Subscribe() (<-chan bool, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan bool, 1)
	ch <- s.authenticated
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()

			delete(s.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (s *Store) publish(v bool) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.authenticated = v
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}

	if !ok || v == "" {
		return "", false, nil
	}

	return v, true, nil
}
