package postgres

import (
	"context"
	"database/sql"
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

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var emailValue any
	if account.Email != nil && *account.Email != "" {
		emailValue = *account.Email
	}

	var phoneValue any
	if account.Phone != nil && *account.Phone != "" {
		phoneValue = *account.Phone
	}

	query := r.builder.Insert("auth.accounts").
		Columns(
			"id",
			"username",
			"password_hash",
			"email",
			"phone",
			"created_at",
			"updated_at",
			"password_last_changed",
			"password_expires_at",
		).
		Values(
			account.ID,
			account.Username,
			account.PasswordHash,
			emailValue,
			phoneValue,
			account.CreatedAt,
			account.UpdatedAt,
			account.PasswordLastChanged,
			account.PasswordExpiresAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.selectAccounts().
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByUsername retrieves an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	stmt, args, err := r.selectAccounts().
		Where(squirrel.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by username sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *AccountRepository) selectAccounts() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"username",
		"password_hash",
		"email",
		"phone",
		"created_at",
		"updated_at",
		"password_last_changed",
		"password_expires_at",
	).From("auth.accounts")
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		email   sql.NullString
		phone   sql.NullString
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&email,
		&phone,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.PasswordLastChanged,
		&account.PasswordExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if email.Valid {
		val := email.String
		account.Email = &val
	}
	if phone.Valid {
		val := phone.String
		account.Phone = &val
	}

	return &account, nil
}

// UpdatePassword replaces the password hash and rotation timestamps.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update("auth.accounts").
		Set("password_hash", passwordHash).
		Set("password_last_changed", changedAt).
		Set("password_expires_at", expiresAt).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateProfile modifies the mutable contact fields of an account.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, email, phone *string, updatedAt time.Time) error {
	var emailValue any
	if email != nil && *email != "" {
		emailValue = *email
	}

	var phoneValue any
	if phone != nil && *phone != "" {
		phoneValue = *phone
	}

	stmt, args, err := r.builder.Update("auth.accounts").
		Set("email", emailValue).
		Set("phone", phoneValue).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListPasswordHistory retrieves the most recent password hashes for an account.
func (r *AccountRepository) ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	trimmedID := strings.TrimSpace(accountID)
	if trimmedID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	builder := r.builder.Select("id", "account_id", "password_hash", "created_at").
		From("auth.password_history").
		Where(squirrel.Eq{"account_id": trimmedID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.PasswordHistoryEntry, 0)
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PasswordHash, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return history, nil
}

// AddPasswordHistory inserts a password hash into the history table.
func (r *AccountRepository) AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	accountID := strings.TrimSpace(entry.AccountID)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(entry.PasswordHash) == "" {
		return fmt.Errorf("password hash is required")
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	builder := r.builder.Insert("auth.password_history")
	if entry.ID != "" {
		builder = builder.Columns("id", "account_id", "password_hash", "created_at").
			Values(entry.ID, accountID, entry.PasswordHash, createdAt)
	} else {
		builder = builder.Columns("account_id", "password_hash", "created_at").
			Values(accountID, entry.PasswordHash, createdAt)
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	return nil
}

// TrimPasswordHistory ensures only the most recent maxEntries hashes are retained.
func (r *AccountRepository) TrimPasswordHistory(ctx context.Context, accountID string, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}

	trimmedID := strings.TrimSpace(accountID)
	if trimmedID == "" {
		return fmt.Errorf("account id is required")
	}

	stmt := `
		DELETE FROM auth.password_history
		 WHERE account_id = $1
		   AND id NOT IN (
				SELECT id
				  FROM auth.password_history
				 WHERE account_id = $1
				 ORDER BY created_at DESC
				 LIMIT $2
		   )
	`

	if _, err := r.exec.Exec(ctx, stmt, trimmedID, maxEntries); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
