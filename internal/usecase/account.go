package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/repository"
)

// AccountService exposes profile reads and updates for authenticated callers.
type AccountService struct {
	accounts port.AccountRepository
	audit    *AuditRecorder
	now      func() time.Time
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(accounts port.AccountRepository, audit *AuditRecorder) *AccountService {
	return &AccountService{
		accounts: accounts,
		audit:    audit,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// Get loads an account by id without its password hash.
func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}

// UpdateProfileInput carries the mutable contact fields.
type UpdateProfileInput struct {
	AccountID     string
	Email         *string
	Phone         *string
	SourceAddress string
}

// UpdateProfile replaces the contact fields of an account.
func (s *AccountService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.Account, error) {
	if input.AccountID == "" {
		return nil, &ValidationError{Field: "accountId", Message: "account id is required"}
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && !strings.Contains(email, "@") {
			return nil, &ValidationError{Field: "email", Message: "email is invalid"}
		}
		input.Email = &email
	}

	updatedAt := s.now().UTC()
	if err := s.accounts.UpdateProfile(ctx, input.AccountID, input.Email, input.Phone, updatedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		AccountID:     &input.AccountID,
		Action:        domain.AuditProfileUpdated,
		SourceAddress: sourcePtr(input.SourceAddress),
	})

	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, fmt.Errorf("reload account: %w", err)
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}
