package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/repository"
)

// LoginAttemptRepository implements port.LoginAttemptRepository using PostgreSQL.
type LoginAttemptRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLoginAttemptRepository constructs a repository backed by any executor
// that satisfies pgExecutor.
func NewLoginAttemptRepository(exec pgExecutor) *LoginAttemptRepository {
	repo := &LoginAttemptRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *LoginAttemptRepository) WithTx(tx pgx.Tx) *LoginAttemptRepository {
	if tx == nil {
		return r
	}
	return &LoginAttemptRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Record appends one attempt row.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	if strings.TrimSpace(attempt.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(attempt.SourceAddress) == "" {
		return fmt.Errorf("source address is required")
	}

	attemptedAt := attempt.AttemptedAt
	if attemptedAt.IsZero() {
		attemptedAt = time.Now().UTC()
	}

	var lockedValue any
	if attempt.LockedUntil != nil {
		lockedValue = *attempt.LockedUntil
	}

	builder := r.builder.Insert("auth.login_attempts")
	if attempt.ID != "" {
		builder = builder.Columns("id", "username", "source_address", "success", "attempted_at", "locked_until").
			Values(attempt.ID, attempt.Username, attempt.SourceAddress, attempt.Success, attemptedAt, lockedValue)
	} else {
		builder = builder.Columns("username", "source_address", "success", "attempted_at", "locked_until").
			Values(attempt.Username, attempt.SourceAddress, attempt.Success, attemptedAt, lockedValue)
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

// Latest returns the most recent attempt for the (username, source address)
// pair, or repository.ErrNotFound when no attempts exist.
func (r *LoginAttemptRepository) Latest(ctx context.Context, username, sourceAddress string) (*domain.LoginAttempt, error) {
	stmt, args, err := r.builder.
		Select("id", "username", "source_address", "success", "attempted_at", "locked_until").
		From("auth.login_attempts").
		Where(squirrel.Eq{"username": username}).
		Where(squirrel.Eq{"source_address": sourceAddress}).
		OrderBy("attempted_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select latest attempt sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		attempt     domain.LoginAttempt
		lockedUntil *time.Time
	)

	if err := row.Scan(
		&attempt.ID,
		&attempt.Username,
		&attempt.SourceAddress,
		&attempt.Success,
		&attempt.AttemptedAt,
		&lockedUntil,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan latest attempt: %w", err)
	}

	attempt.LockedUntil = lockedUntil
	return &attempt, nil
}

// CountFailuresSinceSuccess counts consecutive failed attempts recorded after
// the most recent successful one. When the pair has never succeeded the whole
// history counts.
func (r *LoginAttemptRepository) CountFailuresSinceSuccess(ctx context.Context, username, sourceAddress string) (int, error) {
	stmt := `
		SELECT COUNT(*)
		  FROM auth.login_attempts
		 WHERE username = $1
		   AND source_address = $2
		   AND success = FALSE
		   AND attempted_at > COALESCE((
				SELECT MAX(attempted_at)
				  FROM auth.login_attempts
				 WHERE username = $1
				   AND source_address = $2
				   AND success = TRUE
		   ), 'epoch'::timestamptz)
	`

	row := r.exec.QueryRow(ctx, stmt, username, sourceAddress)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan failure count: %w", err)
	}

	return int(count), nil
}

// Lock stamps locked_until on every attempt row for the pair so that
// subsequent reads of the latest attempt see an active lock.
func (r *LoginAttemptRepository) Lock(ctx context.Context, username, sourceAddress string, until time.Time) error {
	stmt, args, err := r.builder.Update("auth.login_attempts").
		Set("locked_until", until).
		Where(squirrel.Eq{"username": username}).
		Where(squirrel.Eq{"source_address": sourceAddress}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock attempts sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("lock attempts: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
