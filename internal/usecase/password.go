package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/repository"
)

// PasswordService rotates account passwords under the policy, history, and
// expiry rules.
type PasswordService struct {
	accounts  port.AccountRepository
	validator *security.PasswordValidator
	hasher    *security.PasswordHasher
	audit     *AuditRecorder
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewPasswordService constructs a PasswordService instance.
func NewPasswordService(
	accounts port.AccountRepository,
	validator *security.PasswordValidator,
	hasher *security.PasswordHasher,
	audit *AuditRecorder,
	events port.EventPublisher,
	logger *zap.Logger,
) *PasswordService {
	return &PasswordService{
		accounts:  accounts,
		validator: validator,
		hasher:    hasher,
		audit:     audit,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// ChangePasswordInput carries a password rotation request.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
	SourceAddress   string
}

// Change rotates the account password. Policy and reuse checks run before the
// current password is verified, so a caller learns everything wrong with the
// candidate in one round trip.
func (s *PasswordService) Change(ctx context.Context, input ChangePasswordInput) error {
	if input.AccountID == "" {
		return &ValidationError{Field: "accountId", Message: "account id is required"}
	}
	if input.CurrentPassword == "" {
		return &ValidationError{Field: "currentPassword", Message: "current password is required"}
	}
	if input.NewPassword == "" {
		return &ValidationError{Field: "newPassword", Message: "new password is required"}
	}

	if violations := s.validator.ValidateAll(input.NewPassword); len(violations) > 0 {
		s.recordFailure(ctx, input, "policy_violation")
		return &PasswordPolicyError{Violations: violations}
	}

	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}

	reused, err := s.isRecentlyUsed(ctx, account, input.NewPassword)
	if err != nil {
		return err
	}
	if reused {
		s.recordFailure(ctx, input, "password_reused")
		return ErrPasswordReused
	}

	ok, err := s.hasher.Verify(input.CurrentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, input, "wrong_current_password")
		return ErrInvalidCredentials
	}

	newHash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	changedAt := s.now().UTC()
	expiresAt := changedAt.Add(domain.PasswordMaxAge)

	if err := s.accounts.UpdatePassword(ctx, account.ID, newHash, changedAt, expiresAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.accounts.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		PasswordHash: newHash,
		CreatedAt:    changedAt,
	}); err != nil {
		return fmt.Errorf("append password history: %w", err)
	}

	if err := s.accounts.TrimPasswordHistory(ctx, account.ID, domain.PasswordHistoryDepth); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     &account.ID,
		Action:        domain.AuditPasswordChanged,
		SourceAddress: sourcePtr(input.SourceAddress),
		Details:       map[string]any{"expires_at": expiresAt},
	})

	if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		ChangedAt: changedAt,
		ExpiresAt: expiresAt,
	}); err != nil {
		s.logger.Warn("password changed event not published", zap.Error(err))
	}

	return nil
}

// isRecentlyUsed reports whether the candidate matches the current hash or
// any retained history entry.
func (s *PasswordService) isRecentlyUsed(ctx context.Context, account *domain.Account, candidate string) (bool, error) {
	ok, err := s.hasher.Verify(candidate, account.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("compare against current password: %w", err)
	}
	if ok {
		return true, nil
	}

	history, err := s.accounts.ListPasswordHistory(ctx, account.ID, domain.PasswordHistoryDepth)
	if err != nil {
		return false, fmt.Errorf("load password history: %w", err)
	}

	for _, entry := range history {
		ok, err := s.hasher.Verify(candidate, entry.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("compare against password history: %w", err)
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (s *PasswordService) recordFailure(ctx context.Context, input ChangePasswordInput, reason string) {
	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     &input.AccountID,
		Action:        domain.AuditPasswordChangeFailed,
		SourceAddress: sourcePtr(input.SourceAddress),
		Details:       map[string]any{"reason": reason},
	})
}

func sourcePtr(source string) *string {
	if source == "" {
		return nil
	}
	return &source
}
