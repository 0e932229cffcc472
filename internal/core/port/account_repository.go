package port

import (
	"context"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
)

// AccountRepository exposes persistence behavior for credential records.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt, expiresAt time.Time) error
	UpdateProfile(ctx context.Context, id string, email, phone *string, updatedAt time.Time) error
	ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error)
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error
	TrimPasswordHistory(ctx context.Context, accountID string, maxEntries int) error
}
