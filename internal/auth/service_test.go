package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"money42/internal/domain"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	profiles map[string]bool
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}, profiles: map[string]bool{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	m.profiles[u.ID] = true
	return nil
}

func (m *memUsers) UserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) UserByProvider(_ context.Context, provider, subject string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderUserID == subject {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memSessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	states  map[string]OAuthState
}

func newMemSessions() *memSessions {
	return &memSessions{revoked: map[string]time.Time{}, states: map[string]OAuthState{}}
}

func (m *memSessions) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = until
	return nil
}

func (m *memSessions) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

func (m *memSessions) SaveState(_ context.Context, state string, st OAuthState, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = st
	return nil
}

func (m *memSessions) TakeState(_ context.Context, state string) (*OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[state]
	if !ok {
		return nil, ErrStateNotFound
	}
	delete(m.states, state)
	return &st, nil
}

type fakeProvider struct {
	info *OAuthUserInfo
}

func (f *fakeProvider) GetLoginURL(state string) string {
	return "https://idp.example/auth?state=" + state
}

func (f *fakeProvider) ExchangeCode(context.Context, string) (*OAuthUserInfo, error) {
	return f.info, nil
}

func newTestService() (*Service, *memUsers, *memSessions) {
	users, sessions := newMemUsers(), newMemSessions()
	svc := NewService(users, sessions, Config{
		JWTSecret:        "test-secret",
		TokenTTL:         time.Hour,
		AllowedRedirects: []string{"https://money42.example/app", "http://127.0.0.1/callback"},
		BcryptCost:       bcrypt.MinCost,
	})
	logger, _ := test.NewNullLogger()
	svc.SetLogger(logger)
	return svc, users, sessions
}

func TestSignUp_CreatesUserProfileAndSession(t *testing.T) {
	svc, users, _ := newTestService()

	sess, err := svc.SignUp(context.Background(), "Alice@Example.com", "pa55word")

	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.Equal(t, domain.ProviderEmail, sess.User.Provider)
	assert.True(t, users.profiles[sess.User.ID])
}

func TestSignUp_DuplicateEmailSurfacesProviderError(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.SignUp(context.Background(), "alice@example.com", "pa55word")
	require.NoError(t, err)

	sess, err := svc.SignUp(context.Background(), "alice@example.com", "other")

	assert.Nil(t, sess)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "User already registered", perr.Error())
}

func TestSignUp_MissingFields(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SignUp(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = svc.SignIn(context.Background(), "a@example.com", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSignIn(t *testing.T) {
	svc, _, _ := newTestService()
	up, err := svc.SignUp(context.Background(), "alice@example.com", "pa55word")
	require.NoError(t, err)

	sess, err := svc.SignIn(context.Background(), "ALICE@example.com", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, up.User.ID, sess.User.ID)

	_, err = svc.SignIn(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(context.Background(), "nobody@example.com", "pa55word")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOut_RevokesSession(t *testing.T) {
	svc, _, _ := newTestService()
	sess, err := svc.SignUp(context.Background(), "alice@example.com", "pa55word")
	require.NoError(t, err)

	claims, err := svc.Authenticate(context.Background(), sess.AccessToken)
	require.NoError(t, err)
	current, err := svc.CurrentSession(context.Background(), sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, current.User.ID)

	require.NoError(t, svc.SignOut(context.Background(), claims))

	_, err = svc.Authenticate(context.Background(), sess.AccessToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	_, err = svc.CurrentSession(context.Background(), sess.AccessToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestOAuth_FullFlowCreatesUserOnce(t *testing.T) {
	svc, users, _ := newTestService()
	svc.RegisterProvider("google", &fakeProvider{info: &OAuthUserInfo{
		ProviderUserID: "google-sub-1", Email: "bob@example.com", EmailVerified: true, Provider: domain.ProviderGoogle,
	}})

	for i := 0; i < 2; i++ {
		loginURL, err := svc.SignInWithOAuth(context.Background(), "google", "https://money42.example/app")
		require.NoError(t, err)
		u, err := url.Parse(loginURL)
		require.NoError(t, err)
		state := u.Query().Get("state")
		require.NotEmpty(t, state)

		sess, redirect, err := svc.CompleteOAuth(context.Background(), "google", "auth-code", state)
		require.NoError(t, err)
		assert.Equal(t, "https://money42.example/app", redirect)
		assert.Equal(t, "bob@example.com", sess.User.Email)

		// state is single-use
		_, _, err = svc.CompleteOAuth(context.Background(), "google", "auth-code", state)
		assert.ErrorIs(t, err, ErrInvalidState)
	}
	assert.Len(t, users.users, 1)
}

func TestOAuth_LinksExistingEmailUser(t *testing.T) {
	svc, users, _ := newTestService()
	up, err := svc.SignUp(context.Background(), "bob@example.com", "pa55word")
	require.NoError(t, err)
	svc.RegisterProvider("google", &fakeProvider{info: &OAuthUserInfo{
		ProviderUserID: "google-sub-1", Email: "bob@example.com", EmailVerified: true, Provider: domain.ProviderGoogle,
	}})

	loginURL, err := svc.SignInWithOAuth(context.Background(), "google", "https://money42.example/app")
	require.NoError(t, err)
	u, _ := url.Parse(loginURL)
	sess, _, err := svc.CompleteOAuth(context.Background(), "google", "c", u.Query().Get("state"))

	require.NoError(t, err)
	assert.Equal(t, up.User.ID, sess.User.ID)
	assert.Len(t, users.users, 1)
}

func TestOAuth_Rejections(t *testing.T) {
	svc, _, _ := newTestService()
	svc.RegisterProvider("google", &fakeProvider{})

	_, err := svc.SignInWithOAuth(context.Background(), "github", "https://money42.example/app")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = svc.SignInWithOAuth(context.Background(), "google", "https://evil.example/steal")
	assert.ErrorIs(t, err, ErrRedirectNotAllowed)

	_, _, err = svc.CompleteOAuth(context.Background(), "google", "code", "never-issued")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRedirectAllowed_LoopbackAnyPort(t *testing.T) {
	svc, _, _ := newTestService()

	assert.True(t, svc.redirectAllowed("http://127.0.0.1:53122/callback"))
	assert.True(t, svc.redirectAllowed("http://127.0.0.1/callback"))
	assert.False(t, svc.redirectAllowed("http://127.0.0.1:53122/other"))
	assert.False(t, svc.redirectAllowed("http://localhost.evil:53122/callback"))
	assert.False(t, svc.redirectAllowed("not a url"))
}

func TestCallbackURL(t *testing.T) {
	got, err := CallbackURL("http://127.0.0.1:4000/callback?x=1", &Session{
		AccessToken: "tok", TokenType: "bearer", ExpiresIn: 60, ExpiresAt: 1700000000,
	})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "tok", u.Query().Get("access_token"))
	assert.Equal(t, "1", u.Query().Get("x"))
	assert.Equal(t, "60", u.Query().Get("expires_in"))
}

// completeGoogle runs one OAuth round trip through the service
func completeGoogle(t *testing.T, svc *Service) (*Session, error) {
	t.Helper()
	loginURL, err := svc.SignInWithOAuth(context.Background(), "google", "https://money42.example/app")
	require.NoError(t, err)
	u, err := url.Parse(loginURL)
	require.NoError(t, err)
	sess, _, err := svc.CompleteOAuth(context.Background(), "google", "auth-code", u.Query().Get("state"))
	return sess, err
}

func TestOAuth_UnverifiedEmailDoesNotLinkExistingUser(t *testing.T) {
	svc, users, _ := newTestService()
	_, err := svc.SignUp(context.Background(), "victim@example.com", "pa55word")
	require.NoError(t, err)

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sub": "other-sub", "email": "victim@example.com", "email_verified": false})
	}))
	defer idp.Close()
	svc.RegisterProvider("google", NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "id",
		TokenURL:    idp.URL + "/token",
		UserInfoURL: idp.URL + "/userinfo",
	}))

	sess, err := completeGoogle(t, svc)

	assert.Nil(t, sess)
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Len(t, users.users, 1)
	victim, err := users.UserByEmail(context.Background(), "victim@example.com")
	require.NoError(t, err)
	assert.Empty(t, victim.ProviderUserID)
}

func TestOAuth_UnverifiedEmailCreatesNoUser(t *testing.T) {
	svc, users, _ := newTestService()
	svc.RegisterProvider("google", &fakeProvider{info: &OAuthUserInfo{
		ProviderUserID: "google-sub-2", Email: "new@example.com", Provider: domain.ProviderGoogle,
	}})

	_, err := completeGoogle(t, svc)

	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Empty(t, users.users)
}

func TestOAuth_KnownSubjectSignsInRegardlessOfVerification(t *testing.T) {
	svc, users, _ := newTestService()
	require.NoError(t, users.CreateUser(context.Background(), &domain.User{
		ID: "u-1", Email: "carol@example.com", Provider: domain.ProviderGoogle, ProviderUserID: "google-sub-3",
	}))
	svc.RegisterProvider("google", &fakeProvider{info: &OAuthUserInfo{
		ProviderUserID: "google-sub-3", Email: "carol@example.com", Provider: domain.ProviderGoogle,
	}})

	sess, err := completeGoogle(t, svc)

	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.User.ID)
}
