// Package identity models the identity collaborator: an opaque user id with
// display fields plus the signed-in/out session lifecycle. The data layer
// treats "no session" as "all collections empty, nothing subscribed".
package identity

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginTaken         = errors.New("login already taken")
	ErrInvalidToken       = errors.New("invalid token")
)

// Session is one signed-in identity.
type Session struct {
	UserID string
	Login  string
	Name   string
	Token  string
}

// Provider exposes the current identity and its lifecycle events.
// Sessions() emits the new session on sign-in and nil on sign-out.
type Provider interface {
	SignIn(ctx context.Context, login, password string) (*Session, error)
	SignOut(ctx context.Context)
	Current() *Session
	Sessions() <-chan *Session
}

// broadcaster is the shared session-lifecycle plumbing of providers.
type broadcaster struct {
	mu      sync.Mutex
	current *Session
	ch      chan *Session
}

func newBroadcaster() *broadcaster {
	return &broadcaster{ch: make(chan *Session, 4)}
}

func (b *broadcaster) set(s *Session) {
	b.mu.Lock()
	b.current = s
	b.mu.Unlock()
	select {
	case b.ch <- s:
	default:
	}
}

func (b *broadcaster) Current() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *broadcaster) Sessions() <-chan *Session {
	return b.ch
}
