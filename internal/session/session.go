// Package session holds the bearer credential the client presents on every
// request.
//
// The credential is a single opaque token stored under TokenKey in a Store.
// It is written on login, read before each request and cleared on logout.
// Stores are safe for concurrent use, but a request already in flight when
// the token changes may still carry the previous value (or none). Callers
// that need ordering must sequence login before dependent calls themselves.
package session

import (
	"context"
	"errors"
	"fmt"
)

// TokenKey is the fixed key the bearer token is stored under.
const TokenKey = "token"

// Store is a small key/value persistence for client session state.
// Get returns nil, nil when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrUnknownBackend = errors.New("session: unknown backend")

// Session scopes a credential to one Store.
type Session struct {
	store Store
}

func New(store Store) *Session {
	return &Session{store: store}
}

// NewMemory returns a session backed by a fresh in-process store.
func NewMemory() *Session {
	return New(NewMemoryStore())
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s == nil || s.store == nil {
		return "", nil
	}
	v, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("session: read token: %w", err)
	}
	return string(v), nil
}

// Save replaces the stored token.
func (s *Session) Save(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}

func (s *Session) Authenticated(ctx context.Context) (bool, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return false, err
	}
	return tok != "", nil
}
