package session

import (
	"context"
	"log"
	"sync"

	"github.com/wiko-cutlery/assistant-portal/internal/gateway"
	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
)

// State is the coarse authentication state of the store.
type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

const (
	loginFailed       = "Login failed"
	loginFailedDetail = "Login failed. Please check your credentials."
)

// Backend is the subset of the API used by the store.
type Backend interface {
	Login(ctx context.Context, credentials auth.Credentials) (*auth.LoginResponse, error)
	Logout(ctx context.Context) error
	AuthStatus(ctx context.Context) (*auth.StatusResponse, error)
}

// Store holds the identity of the logged-in employee.
type Store struct {
	backend Backend

	mu        sync.RWMutex
	user      *auth.User
	err       string
	inFlight  int
	resolved  bool
	lastState State
	listeners []func(State)

	restoreOnce sync.Once
	ready       chan struct{}
}

// NewStore creates a store in the loading state. Call Restore to resolve it
// from the server-side session.
func NewStore(backend Backend) *Store {
	return &Store{
		backend:   backend,
		lastState: StateLoading,
		ready:     make(chan struct{}),
	}
}

// Restore runs CheckStatus once per store. Later calls return immediately.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		defer close(s.ready)
		s.CheckStatus(ctx)
	})
}

// Ready is closed once Restore has completed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// CheckStatus asks the server whether the current cookie identifies an
// employee. Failures are logged and treated as unauthenticated.
func (s *Store) CheckStatus(ctx context.Context) {
	s.begin()
	defer s.end()

	status, err := s.backend.AuthStatus(ctx)
	if err != nil {
		log.Printf("[session] auth status check failed: %v", err)
		s.setUser(nil)
		return
	}
	if status.Authenticated {
		s.setUser(status.Identity())
		return
	}
	s.setUser(nil)
}

// Login authenticates with the backend. The result carries a message fit
// for display when Success is false.
func (s *Store) Login(ctx context.Context, credentials auth.Credentials) auth.LoginResult {
	s.begin()
	defer s.end()

	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()

	resp, err := s.backend.Login(ctx, credentials)
	if err == nil && resp.Identity() == nil {
		err = &gateway.Error{Kind: gateway.KindApplication, Path: "/auth/login", Message: loginFailed}
	}
	if err != nil {
		message := gateway.Message(err)
		if message == "" {
			message = loginFailedDetail
		}
		log.Printf("[session] login failed for %q: %v", credentials.Username, err)

		s.mu.Lock()
		s.err = message
		s.mu.Unlock()
		return auth.LoginResult{Success: false, Error: message}
	}

	s.setUser(resp.Identity())
	return auth.LoginResult{Success: true}
}

// Logout ends the server session. Local state is cleared whatever the
// server answers.
func (s *Store) Logout(ctx context.Context) {
	s.begin()
	defer s.end()

	if err := s.backend.Logout(ctx); err != nil {
		log.Printf("[session] logout request failed: %v", err)
	}

	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
	s.setUser(nil)
}

// ClearError resets the last login error.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Err returns the last login error, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// User returns a copy of the current identity.
func (s *Store) User() (auth.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return auth.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether an identity is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Loading reports whether any store operation is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// State returns loading until the first status check or login settles.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Subscribe registers fn to run after every state transition. fn is called
// without the store lock held.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) stateLocked() State {
	switch {
	case !s.resolved:
		return StateLoading
	case s.user != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// setUser replaces the identity wholesale and fires listeners on change.
func (s *Store) setUser(user *auth.User) {
	s.mu.Lock()
	if user != nil {
		copied := *user
		s.user = &copied
	} else {
		s.user = nil
	}
	s.resolved = true

	state := s.stateLocked()
	changed := state != s.lastState
	s.lastState = state
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(state)
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}
