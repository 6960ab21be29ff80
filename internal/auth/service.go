// Package auth signs users up and in, with email/password or a delegated
// OAuth provider, and issues and revokes sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"money42/internal/domain"
	"money42/internal/metrics"
	"money42/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// stateTTL bounds how long a user may take at the OAuth provider
const stateTTL = 10 * time.Minute

// Auth events, as counted in metrics
const (
	EventSignedUp  = "signed_up"
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// UserStore is the user table the service reads and writes
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByID(ctx context.Context, id string) (*domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByProvider(ctx context.Context, provider, subject string) (*domain.User, error)
}

// Config holds token and redirect settings
type Config struct {
	JWTSecret        string
	TokenTTL         time.Duration
	AllowedRedirects []string
	BcryptCost       int // bcrypt.DefaultCost when zero
}

// Service implements sign-up, sign-in, OAuth and sign-out
type Service struct {
	users     UserStore
	sessions  SessionStore
	cfg       Config
	providers map[string]OAuthProvider
	metrics   metrics.Recorder
	log       logrus.FieldLogger
}

// NewService creates a Service
func NewService(users UserStore, sessions SessionStore, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		cfg:       cfg,
		providers: make(map[string]OAuthProvider),
		metrics:   metrics.Nop{},
		log:       logrus.StandardLogger(),
	}
}

// RegisterProvider enables an OAuth provider under name
func (s *Service) RegisterProvider(name string, p OAuthProvider) {
	s.providers[name] = p
}

// SetMetrics reports auth events to m
func (s *Service) SetMetrics(m metrics.Recorder) { s.metrics = m }

// SetLogger replaces the standard logrus logger
func (s *Service) SetLogger(l logrus.FieldLogger) { s.log = l }

// SignUp registers an email/password user and signs them in. The profile row
// is created in the same transaction as the user.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		Provider: domain.ProviderEmail,
		Role:     domain.RoleUser,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.RecordAuth(EventSignedUp, domain.ProviderEmail)
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "provider": u.Provider}).Info("User signed up")
	return s.issue(u)
}

// SignIn checks an email/password pair and opens a session
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.Password == "" || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	s.metrics.RecordAuth(EventSignedIn, domain.ProviderEmail)
	return s.issue(u)
}

// SignInWithOAuth returns the provider URL to send the browser to. After
// consent the provider calls back and the session is delivered to redirectTo.
func (s *Service) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	if !s.redirectAllowed(redirectTo) {
		return "", ErrRedirectNotAllowed
	}
	state, err := randomState()
	if err != nil {
		return "", err
	}
	if err := s.sessions.SaveState(ctx, state, OAuthState{Provider: provider, RedirectTo: redirectTo}, stateTTL); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return p.GetLoginURL(state), nil
}

// CompleteOAuth finishes a provider callback. It returns the new session and
// the redirect target recorded by SignInWithOAuth.
func (s *Service) CompleteOAuth(ctx context.Context, provider, code, state string) (*Session, string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, "", ErrUnknownProvider
	}
	st, err := s.sessions.TakeState(ctx, state)
	if errors.Is(err, ErrStateNotFound) {
		return nil, "", ErrInvalidState
	}
	if err != nil {
		return nil, "", fmt.Errorf("load oauth state: %w", err)
	}
	if st.Provider != provider {
		return nil, "", ErrInvalidState
	}
	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%s exchange: %w", provider, err)
	}
	u, err := s.oauthUser(ctx, info)
	if err != nil {
		return nil, "", err
	}
	s.metrics.RecordAuth(EventSignedIn, provider)
	sess, err := s.issue(u)
	if err != nil {
		return nil, "", err
	}
	return sess, st.RedirectTo, nil
}

// oauthUser finds the user behind an OAuth identity, linking by email and
// creating the user (and profile) on first sign-in. Both linking and creation
// require the provider to have verified the email.
func (s *Service) oauthUser(ctx context.Context, info *OAuthUserInfo) (*domain.User, error) {
	u, err := s.users.UserByProvider(ctx, info.Provider, info.ProviderUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find user by provider: %w", err)
	}
	if !info.EmailVerified {
		s.log.WithFields(logrus.Fields{"provider": info.Provider, "email": info.Email}).Warn("OAuth sign-in rejected: email not verified")
		return nil, ErrEmailNotVerified
	}
	u, err = s.users.UserByEmail(ctx, info.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	u = &domain.User{
		ID:             uuid.NewString(),
		Email:          info.Email,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		Role:           domain.RoleUser,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.RecordAuth(EventSignedUp, info.Provider)
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "provider": u.Provider}).Info("User signed up")
	return u, nil
}

// Authenticate validates an access token and rejects signed-out sessions
func (s *Service) Authenticate(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := utils.ParseJWT(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	revoked, err := s.sessions.IsRevoked(ctx, claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// CurrentSession resolves a token to the session it represents
func (s *Service) CurrentSession(ctx context.Context, token string) (*Session, error) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	exp := claims.ExpiresAt.Unix()
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   exp - time.Now().Unix(),
		ExpiresAt:   exp,
		User:        sessionUser(u),
	}, nil
}

// SignOut revokes the session behind claims
func (s *Service) SignOut(ctx context.Context, claims *utils.Claims) error {
	if err := s.sessions.Revoke(ctx, claims.SessionID(), claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.metrics.RecordAuth(EventSignedOut, claims.Provider)
	s.log.WithField("user_id", claims.UserID).Info("User signed out")
	return nil
}

func (s *Service) issue(u *domain.User) (*Session, error) {
	token, claims, err := utils.GenerateJWT(u.ID, u.Email, u.Provider, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.cfg.TokenTTL / time.Second),
		ExpiresAt:   claims.ExpiresAt.Unix(),
		User:        sessionUser(u),
	}, nil
}

// redirectAllowed matches target against the allow-list. An allowed loopback
// URL without a port accepts any port, so CLI listeners can bind port 0.
func (s *Service) redirectAllowed(target string) bool {
	t, err := url.Parse(target)
	if err != nil || t.Host == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedRedirects {
		if target == allowed {
			return true
		}
		a, err := url.Parse(allowed)
		if err != nil || a.Port() != "" || a.Hostname() != "127.0.0.1" {
			continue
		}
		if t.Scheme == a.Scheme && t.Hostname() == a.Hostname() && t.Path == a.Path {
			return true
		}
	}
	return false
}

func sessionUser(u *domain.User) SessionUser {
	return SessionUser{ID: u.ID, Email: u.Email, Provider: u.Provider, Role: u.Role}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
