// Package wallet implements balance lookups and the redemption of one-time
// transaction codes.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"money42/internal/domain"
	"money42/internal/metrics"
	"money42/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Repository is the persistence the service needs
type Repository interface {
	EnsureProfile(ctx context.Context, userID string) (*domain.Profile, error)
	Redeem(ctx context.Context, userID, code string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error)
}

// Service serves balances and redeems codes
type Service struct {
	repo     Repository
	rdb      redis.Cmdable
	cacheTTL time.Duration
	metrics  metrics.Recorder
	log      logrus.FieldLogger
}

// Option configures a Service
type Option func(*Service)

// WithCache caches balances in Redis for ttl
func WithCache(rdb redis.Cmdable, ttl time.Duration) Option {
	return func(s *Service) {
		s.rdb = rdb
		s.cacheTTL = ttl
	}
}

// WithMetrics reports redemption outcomes to m
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger replaces the standard logrus logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service over repo
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		cacheTTL: time.Minute,
		metrics:  metrics.Nop{},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Balance is a user's balance as served to clients
type Balance struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
	Cached  bool   `json:"cached"`
}

// versionTTL keeps balance version counters alive well past any cache entry
const versionTTL = 24 * time.Hour

// cachedBalance is a balance stamped with the version it was read under
type cachedBalance struct {
	Balance int64 `json:"balance"`
	Version int64 `json:"version"`
}

// Balance returns the balance of userID. A missing profile is created with a
// zero balance.
//
// Cache entries carry the balance version read before the database. Redeem
// bumps the version after committing, so an entry written from a read that
// raced a redemption is never served.
func (s *Service) Balance(ctx context.Context, userID string) (*Balance, error) {
	key := utils.BalanceKey(userID)
	version, verr := utils.CacheVersion(ctx, s.rdb, utils.BalanceVersionKey(userID))
	if verr == nil {
		var cached cachedBalance
		if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found && cached.Version == version {
			return &Balance{UserID: userID, Balance: cached.Balance, Cached: true}, nil
		}
	}
	p, err := s.repo.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	if verr == nil {
		_ = utils.SetCache(ctx, s.rdb, key, cachedBalance{Balance: p.Balance, Version: version}, s.cacheTTL)
	}
	return &Balance{UserID: userID, Balance: p.Balance}, nil
}

// invalidateBalance retires every cached balance of userID
func (s *Service) invalidateBalance(ctx context.Context, userID string) {
	ttl := versionTTL
	if s.cacheTTL > ttl {
		ttl = 2 * s.cacheTTL
	}
	if err := utils.BumpVersion(ctx, s.rdb, utils.BalanceVersionKey(userID), ttl); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Failed to bump balance version")
	}
	_ = utils.DeleteCache(ctx, s.rdb, utils.BalanceKey(userID))
}

// Outcome is the result of a successful redemption
type Outcome struct {
	TransactionID uint            `json:"transaction_id"`
	Code          string          `json:"code"`
	Type          domain.CodeType `json:"type"`
	Amount        int64           `json:"amount"`
	Balance       int64           `json:"balance"`
}

// Message is the user-facing success text, e.g. "deposit success: ¥500".
// The amount is printed without digit grouping ("¥1500").
func (o Outcome) Message() string {
	return fmt.Sprintf("%s success: ¥%d", o.Type, o.Amount)
}

// Redeem consumes code for userID.
//
// Errors: domain.ErrEmptyCode for blank input (nothing is touched),
// domain.ErrInvalidCode, domain.ErrInsufficientBalance, and
// domain.ErrRedeemFailed wrapping any other failure.
func (s *Service) Redeem(ctx context.Context, userID, code string) (*Outcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrEmptyCode
	}
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "code": code})

	entry, err := s.repo.Redeem(ctx, userID, code)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCode):
		s.metrics.RecordRedemption("", metrics.OutcomeInvalid)
		log.WithError(err).Info("Redemption rejected: invalid or used code")
		return nil, domain.ErrInvalidCode
	case errors.Is(err, domain.ErrInsufficientBalance):
		s.metrics.RecordRedemption(string(domain.CodeWithdraw), metrics.OutcomeInsufficient)
		log.Info("Redemption rejected: insufficient balance")
		return nil, domain.ErrInsufficientBalance
	default:
		s.metrics.RecordRedemption("", metrics.OutcomeError)
		log.WithError(err).Error("Redemption failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrRedeemFailed, err)
	}

	s.invalidateBalance(ctx, userID)
	s.metrics.RecordRedemption(string(entry.Type), metrics.OutcomeSuccess)
	log.WithFields(logrus.Fields{
		"type":          entry.Type,
		"amount":        entry.Amount,
		"balance_after": entry.BalanceAfter,
	}).Info("Code redeemed")

	return &Outcome{
		TransactionID: entry.ID,
		Code:          entry.Code,
		Type:          entry.Type,
		Amount:        entry.Amount,
		Balance:       entry.BalanceAfter,
	}, nil
}

// History pages through the user's redemptions, newest first
func (s *Service) History(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, userID, page, pageSize)
}
