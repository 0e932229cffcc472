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

const minUsernameLength = 3

// RegistrationService creates accounts and issues their first session token.
type RegistrationService struct {
	accounts  port.AccountRepository
	validator *security.PasswordValidator
	hasher    *security.PasswordHasher
	tokens    *security.TokenManager
	audit     *AuditRecorder
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	accounts port.AccountRepository,
	validator *security.PasswordValidator,
	hasher *security.PasswordHasher,
	tokens *security.TokenManager,
	audit *AuditRecorder,
	events port.EventPublisher,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		accounts:  accounts,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		audit:     audit,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Username      string
	Password      string
	Email         *string
	Phone         *string
	SourceAddress string
}

// RegisterResult is returned when the account is created.
type RegisterResult struct {
	Token     string
	ExpiresAt time.Time
	Account   domain.Account
}

// Register validates the request, creates the account with a fresh rotation
// window, and signs the caller in.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	if len([]rune(username)) < minUsernameLength {
		return nil, &ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("username must be at least %d characters long", minUsernameLength),
		}
	}

	if violations := s.validator.ValidateAll(input.Password); len(violations) > 0 {
		return nil, &PasswordPolicyError{Violations: violations}
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username availability: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	account := domain.Account{
		ID:                  uuid.NewString(),
		Username:            username,
		PasswordHash:        hash,
		Email:               input.Email,
		Phone:               input.Phone,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
		PasswordLastChanged: createdAt,
		PasswordExpiresAt:   createdAt.Add(domain.PasswordMaxAge),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.accounts.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		PasswordHash: hash,
		CreatedAt:    createdAt,
	}); err != nil {
		return nil, fmt.Errorf("append password history: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     &account.ID,
		Action:        domain.AuditUserRegistered,
		SourceAddress: sourcePtr(input.SourceAddress),
		Details: map[string]any{
			"username":       username,
			"strength_score": security.PasswordStrengthScore(input.Password, username),
		},
	})

	if err := s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Username:     account.Username,
		Email:        account.Email,
		Phone:        account.Phone,
		RegisteredAt: createdAt,
	}); err != nil {
		s.logger.Warn("user registered event not published", zap.Error(err))
	}

	return &RegisterResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account.Sanitized(),
	}, nil
}
