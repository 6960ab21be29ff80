package client

import (
	"sync"

	"money42/internal/auth"
)

// AppState is the state shared by the session manager, the redemption
// workflow and whatever renders them. Each field has exactly one setter.
type AppState struct {
	mu      sync.RWMutex
	user    *auth.SessionUser
	balance int64
	input   string
	busy    bool
	result  *Result
}

// Snapshot is a consistent copy of AppState
type Snapshot struct {
	User    *auth.SessionUser
	Balance int64
	Input   string
	Busy    bool
	Result  *Result
}

// NewAppState returns an empty, signed-out state
func NewAppState() *AppState {
	return &AppState{}
}

// Snapshot copies the current state
func (s *AppState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Balance: s.balance, Input: s.input, Busy: s.busy, Result: s.result}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// SetUser records the signed-in identity; nil means signed out
func (s *AppState) SetUser(u *auth.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return
	}
	cp := *u
	s.user = &cp
}

// User returns the signed-in identity, or nil
func (s *AppState) User() *auth.SessionUser {
	return s.Snapshot().User
}

// SetBalance records the last known balance
func (s *AppState) SetBalance(b int64) {
	s.mu.Lock()
	s.balance = b
	s.mu.Unlock()
}

// Balance returns the last known balance
func (s *AppState) Balance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// SetInput records the code typed by the user
func (s *AppState) SetInput(in string) {
	s.mu.Lock()
	s.input = in
	s.mu.Unlock()
}

// Input returns the code typed by the user
func (s *AppState) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// SetBusy sets the busy flag. It returns false, changing nothing, when
// asked to set a flag that is already set.
func (s *AppState) SetBusy(busy bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if busy && s.busy {
		return false
	}
	s.busy = busy
	return true
}

// Busy reports whether a redemption is in flight
func (s *AppState) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// SetResult records the outcome of the last redemption
func (s *AppState) SetResult(r *Result) {
	s.mu.Lock()
	s.result = r
	s.mu.Unlock()
}
