package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/repository"
)

// AuthService coordinates the login flow: lockout checks, credential
// verification, password expiry, and session token issuance.
type AuthService struct {
	accounts port.AccountRepository
	guard    *LockoutGuard
	audit    *AuditRecorder
	events   port.EventPublisher
	hasher   *security.PasswordHasher
	tokens   *security.TokenManager
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	accounts port.AccountRepository,
	guard *LockoutGuard,
	audit *AuditRecorder,
	events port.EventPublisher,
	hasher *security.PasswordHasher,
	tokens *security.TokenManager,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		guard:    guard,
		audit:    audit,
		events:   events,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// LoginInput carries the credentials and origin of a login request.
type LoginInput struct {
	Username      string
	Password      string
	SourceAddress string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   domain.Account
}

// Login authenticates the credentials. Exactly one attempt row is recorded
// per call, except when the input fails basic validation.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if input.Password == "" {
		return nil, &ValidationError{Field: "password", Message: "password is required"}
	}

	lockedUntil, err := s.guard.ActiveLock(ctx, username, input.SourceAddress)
	if err != nil {
		return nil, err
	}
	if lockedUntil != nil {
		if err := s.guard.RecordBlockedAttempt(ctx, username, input.SourceAddress, *lockedUntil); err != nil {
			return nil, err
		}
		s.audit.Record(ctx, domain.AuditEntry{
			Action:        domain.AuditLoginBlocked,
			SourceAddress: &input.SourceAddress,
			Details: map[string]any{
				"username":     username,
				"locked_until": lockedUntil.UTC(),
			},
		})
		return nil, &LockedError{Until: *lockedUntil}
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.failLogin(ctx, username, input.SourceAddress, nil)
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if err := s.guard.RecordAttempt(ctx, username, input.SourceAddress, ok); err != nil {
		return nil, err
	}

	if !ok {
		return nil, s.failVerifiedLookup(ctx, *account, input.SourceAddress)
	}

	if account.PasswordExpired(s.now()) {
		s.audit.Record(ctx, domain.AuditEntry{
			AccountID:     &account.ID,
			Action:        domain.AuditLoginPasswordExpired,
			SourceAddress: &input.SourceAddress,
			Details:       map[string]any{"username": username},
		})
		return nil, ErrPasswordExpired
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     &account.ID,
		Action:        domain.AuditLoginSuccess,
		SourceAddress: &input.SourceAddress,
		Details:       map[string]any{"username": username},
	})

	if err := s.events.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
		EventID:       uuid.NewString(),
		AccountID:     account.ID,
		Username:      account.Username,
		SourceAddress: input.SourceAddress,
		OccurredAt:    s.now().UTC(),
	}); err != nil {
		s.logger.Warn("login succeeded event not published", zap.Error(err))
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account.Sanitized(),
	}, nil
}

// failLogin records a failure for a username that did not resolve to an
// account. The attempt is still throttled so unknown usernames cannot be
// probed without limit.
func (s *AuthService) failLogin(ctx context.Context, username, sourceAddress string, accountID *string) error {
	if err := s.guard.RecordAttempt(ctx, username, sourceAddress, false); err != nil {
		return err
	}

	remaining, err := s.guard.RemainingAttempts(ctx, username, sourceAddress)
	if err != nil {
		return err
	}

	if remaining <= 0 {
		return s.lockPair(ctx, username, sourceAddress, accountID)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     accountID,
		Action:        domain.AuditLoginFailed,
		SourceAddress: &sourceAddress,
		Details: map[string]any{
			"username":           username,
			"remaining_attempts": remaining,
		},
	})

	if err := s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:           uuid.NewString(),
		AccountID:         accountID,
		Username:          username,
		SourceAddress:     sourceAddress,
		RemainingAttempts: remaining,
		OccurredAt:        s.now().UTC(),
	}); err != nil {
		s.logger.Warn("login failed event not published", zap.Error(err))
	}

	return &LoginError{Err: ErrInvalidCredentials, RemainingAttempts: &remaining}
}

// failVerifiedLookup handles a wrong password for an existing account. The
// attempt row has already been recorded by the caller.
func (s *AuthService) failVerifiedLookup(ctx context.Context, account domain.Account, sourceAddress string) error {
	remaining, err := s.guard.RemainingAttempts(ctx, account.Username, sourceAddress)
	if err != nil {
		return err
	}

	if remaining <= 0 {
		return s.lockPair(ctx, account.Username, sourceAddress, &account.ID)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     &account.ID,
		Action:        domain.AuditLoginFailed,
		SourceAddress: &sourceAddress,
		Details: map[string]any{
			"username":           account.Username,
			"remaining_attempts": remaining,
		},
	})

	if err := s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:           uuid.NewString(),
		AccountID:         &account.ID,
		Username:          account.Username,
		SourceAddress:     sourceAddress,
		RemainingAttempts: remaining,
		OccurredAt:        s.now().UTC(),
	}); err != nil {
		s.logger.Warn("login failed event not published", zap.Error(err))
	}

	return &LoginError{Err: ErrInvalidCredentials, RemainingAttempts: &remaining}
}

func (s *AuthService) lockPair(ctx context.Context, username, sourceAddress string, accountID *string) error {
	until, err := s.guard.Lock(ctx, username, sourceAddress)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     accountID,
		Action:        domain.AuditAccountLocked,
		SourceAddress: &sourceAddress,
		Details: map[string]any{
			"username":     username,
			"locked_until": until,
		},
	})

	if err := s.events.PublishAccountLocked(ctx, domain.AccountLockedEvent{
		EventID:       uuid.NewString(),
		AccountID:     accountID,
		Username:      username,
		SourceAddress: sourceAddress,
		LockedUntil:   until,
		OccurredAt:    s.now().UTC(),
	}); err != nil {
		s.logger.Warn("account locked event not published", zap.Error(err))
	}

	return &LockedError{Until: until}
}

// Validate verifies a session token and loads the account it refers to.
// Expired tokens map to ErrExpiredToken, any other verification failure to
// ErrInvalidToken, and a deleted account to ErrAccountNotFound.
func (s *AuthService) Validate(ctx context.Context, token string) (*domain.Account, *security.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrInvalidToken
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, nil, ErrExpiredToken
		}
		return nil, nil, ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrAccountNotFound
		}
		return nil, nil, fmt.Errorf("load account: %w", err)
	}

	sanitized := account.Sanitized()
	return &sanitized, claims, nil
}
