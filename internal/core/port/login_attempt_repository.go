package port

import (
	"context"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
)

// LoginAttemptRepository persists the append-only attempt log keyed by
// (username, source address).
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
	// Latest returns the most recent attempt for the key, or
	// repository.ErrNotFound when no attempts exist.
	Latest(ctx context.Context, username, sourceAddress string) (*domain.LoginAttempt, error)
	// CountFailuresSinceSuccess counts consecutive failed attempts after the
	// most recent successful one (whole history when no success exists).
	CountFailuresSinceSuccess(ctx context.Context, username, sourceAddress string) (int, error)
	// Lock stamps locked_until on the key's attempt rows.
	Lock(ctx context.Context, username, sourceAddress string, until time.Time) error
}
