package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"money42/internal/auth"

	"github.com/sirupsen/logrus"
)

// AuthEvent is an auth-state change
type AuthEvent string

const (
	SignedIn  AuthEvent = "SIGNED_IN"
	SignedOut AuthEvent = "SIGNED_OUT"
)

// AuthListener receives auth-state changes. s is nil on SignedOut.
type AuthListener func(event AuthEvent, s *auth.Session)

// ErrMissingCredentials is returned before any call when email or password is blank
var ErrMissingCredentials = errors.New("email and password are required")

// SessionManager owns the signed-in identity. It mirrors the identity into
// AppState and refreshes the balance whenever an identity appears.
type SessionManager struct {
	api    *Client
	state  *AppState
	tokens TokenStore
	log    logrus.FieldLogger

	mu        sync.Mutex
	listeners map[int]AuthListener
	nextID    int
	unsub     func()
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSessionManager wires a manager to its client, state and token store
func NewSessionManager(api *Client, state *AppState, tokens TokenStore, log logrus.FieldLogger) *SessionManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionManager{
		api:       api,
		state:     state,
		tokens:    tokens,
		log:       log,
		listeners: map[int]AuthListener{},
	}
}

// Start subscribes the manager to its own auth events and restores the
// stored session, if any. A stored token the server rejects is discarded.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.unsub != nil {
		m.mu.Unlock()
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Unlock()

	unsub := m.OnAuthStateChange(func(_ AuthEvent, s *auth.Session) {
		m.apply(m.ctx, s)
	})
	m.mu.Lock()
	m.unsub = unsub
	m.mu.Unlock()

	stored, err := m.tokens.Load()
	if err != nil {
		m.log.WithError(err).Warn("Could not read stored session")
	}
	if stored == nil || stored.Expired(time.Now()) {
		m.apply(ctx, nil)
		return nil
	}
	m.api.SetToken(stored.AccessToken)
	s, err := m.api.Session(ctx)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			m.api.SetToken("")
			_ = m.tokens.Clear()
			m.apply(ctx, nil)
			return nil
		}
		return err
	}
	m.apply(ctx, s)
	return nil
}

// Close unsubscribes the manager's own listener
func (m *SessionManager) Close() {
	m.mu.Lock()
	unsub, cancel := m.unsub, m.cancel
	m.unsub, m.cancel = nil, nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

// OnAuthStateChange registers fn and returns the function that removes it
func (m *SessionManager) OnAuthStateChange(fn AuthListener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// SignUp creates an account and signs it in
func (m *SessionManager) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	s, err := m.api.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.establish(s)
	return s, nil
}

// SignIn signs in with email and password
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	s, err := m.api.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.establish(s)
	return s, nil
}

// CompleteOAuth adopts a token delivered by an OAuth redirect
func (m *SessionManager) CompleteOAuth(ctx context.Context, token string) (*auth.Session, error) {
	m.api.SetToken(token)
	s, err := m.api.Session(ctx)
	if err != nil {
		m.api.SetToken("")
		return nil, err
	}
	s.AccessToken = token
	m.establish(s)
	return s, nil
}

// SignOut revokes the session on the server and forgets it locally. The
// local session is dropped even when the server call fails.
func (m *SessionManager) SignOut(ctx context.Context) error {
	var err error
	if m.api.Token() != "" {
		err = m.api.SignOut(ctx)
		if IsStatus(err, http.StatusUnauthorized) {
			err = nil
		}
	}
	m.api.SetToken("")
	if cerr := m.tokens.Clear(); cerr != nil {
		m.log.WithError(cerr).Warn("Could not remove stored session")
	}
	m.emit(SignedOut, nil)
	return err
}

// RefreshBalance fetches the balance into AppState. On failure the previous
// balance is kept.
func (m *SessionManager) RefreshBalance(ctx context.Context) {
	b, err := m.api.Balance(ctx)
	if err != nil {
		m.log.WithError(err).Debug("Balance fetch failed")
		return
	}
	m.state.SetBalance(b.Balance)
}

func (m *SessionManager) establish(s *auth.Session) {
	m.api.SetToken(s.AccessToken)
	err := m.tokens.Save(&StoredSession{AccessToken: s.AccessToken, ExpiresAt: s.ExpiresAt, Email: s.User.Email})
	if err != nil {
		m.log.WithError(err).Warn("Could not persist session")
	}
	m.emit(SignedIn, s)
}

func (m *SessionManager) emit(event AuthEvent, s *auth.Session) {
	m.mu.Lock()
	fns := make([]AuthListener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}

// apply mirrors s into AppState
func (m *SessionManager) apply(ctx context.Context, s *auth.Session) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil {
		m.state.SetUser(nil)
		m.state.SetBalance(0)
		return
	}
	m.state.SetUser(&s.User)
	m.RefreshBalance(ctx)
}
