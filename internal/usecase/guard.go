package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/config"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/repository"
)

// LockoutGuard throttles authentication per (username, source address) pair.
// Every attempt is recorded; once the failure budget is exhausted the pair is
// locked for the configured duration.
type LockoutGuard struct {
	attempts port.LoginAttemptRepository
	cfg      config.LockoutSettings
	now      func() time.Time
}

// NewLockoutGuard constructs a LockoutGuard instance.
func NewLockoutGuard(attempts port.LoginAttemptRepository, cfg config.LockoutSettings) *LockoutGuard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	return &LockoutGuard{
		attempts: attempts,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (g *LockoutGuard) WithClock(now func() time.Time) *LockoutGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// MaxAttempts returns the configured failure budget.
func (g *LockoutGuard) MaxAttempts() int {
	return g.cfg.MaxAttempts
}

// ActiveLock returns the lock expiry for the pair when a lock is still in
// force, or nil otherwise.
func (g *LockoutGuard) ActiveLock(ctx context.Context, username, sourceAddress string) (*time.Time, error) {
	latest, err := g.attempts.Latest(ctx, username, sourceAddress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest attempt: %w", err)
	}

	if latest.Blocked(g.now()) {
		return latest.LockedUntil, nil
	}
	return nil, nil
}

// RecordAttempt appends one attempt row for the pair.
func (g *LockoutGuard) RecordAttempt(ctx context.Context, username, sourceAddress string, success bool) error {
	attempt := domain.LoginAttempt{
		ID:            uuid.NewString(),
		Username:      username,
		SourceAddress: sourceAddress,
		Success:       success,
		AttemptedAt:   g.now().UTC(),
	}
	if err := g.attempts.Record(ctx, attempt); err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

// RecordBlockedAttempt appends an attempt row for a pair whose lock is still
// in force, carrying the lock expiry onto the new row. Without it the blocked
// row would become the newest one and ActiveLock would read the pair as
// unlocked on the next call.
func (g *LockoutGuard) RecordBlockedAttempt(ctx context.Context, username, sourceAddress string, until time.Time) error {
	attempt := domain.LoginAttempt{
		ID:            uuid.NewString(),
		Username:      username,
		SourceAddress: sourceAddress,
		Success:       false,
		AttemptedAt:   g.now().UTC(),
		LockedUntil:   &until,
	}
	if err := g.attempts.Record(ctx, attempt); err != nil {
		return fmt.Errorf("record blocked login attempt: %w", err)
	}
	return nil
}

// RemainingAttempts returns how many failures the pair can still absorb
// before locking. The value is never negative.
func (g *LockoutGuard) RemainingAttempts(ctx context.Context, username, sourceAddress string) (int, error) {
	failures, err := g.attempts.CountFailuresSinceSuccess(ctx, username, sourceAddress)
	if err != nil {
		return 0, fmt.Errorf("count failed attempts: %w", err)
	}

	remaining := g.cfg.MaxAttempts - failures
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Lock stamps the pair's attempt rows with the lock expiry and returns it.
func (g *LockoutGuard) Lock(ctx context.Context, username, sourceAddress string) (time.Time, error) {
	until := g.now().UTC().Add(g.cfg.LockDuration)
	if err := g.attempts.Lock(ctx, username, sourceAddress, until); err != nil {
		return time.Time{}, fmt.Errorf("lock attempts: %w", err)
	}
	return until, nil
}
