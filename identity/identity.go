// Package identity supplies the authenticated user a ledger acts for.
// Authentication itself happens elsewhere; the ledger only asks whether a
// user is present and which one.
package identity

import (
	"sync"

	"github.com/xraph/points/id"
)

// Provider reports the current user.
type Provider interface {
	IsAuthenticated() bool
	UserID() string
}

// Static returns a Provider that is always signed in as userID.
// An empty userID is treated as signed out.
func Static(userID string) Provider {
	return staticProvider(userID)
}

type staticProvider string

func (p staticProvider) IsAuthenticated() bool { return p != "" }
func (p staticProvider) UserID() string        { return string(p) }

// Session is a Provider whose user changes as the host app signs users
// in and out. The zero value is signed out and ready to use.
type Session struct {
	mu        sync.RWMutex
	userID    string
	sessionID id.SessionID
	listeners []func(userID string)
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// SignIn marks userID as the current user and notifies listeners.
func (s *Session) SignIn(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.sessionID = id.NewSessionID()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(userID)
	}
}

// SignOut clears the current user and notifies listeners with "".
func (s *Session) SignOut() {
	s.mu.Lock()
	s.userID = ""
	s.sessionID = id.Nil
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn("")
	}
}

// OnChange registers fn to run after every sign-in or sign-out.
func (s *Session) OnChange(fn func(userID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// IsAuthenticated implements Provider.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID != ""
}

// UserID implements Provider.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SessionID returns the ID minted at the last sign-in, or id.Nil.
func (s *Session) SessionID() id.SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}
