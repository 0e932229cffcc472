package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
)

// AuditLogRepository implements port.AuditLogRepository using PostgreSQL.
// The table is append-only; the single delete path is retention purging.
type AuditLogRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditLogRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAuditLogRepository(exec pgExecutor) *AuditLogRepository {
	repo := &AuditLogRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Record appends one audit entry. Details are stored as JSONB.
func (r *AuditLogRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("audit action is required")
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var detailsValue any
	if len(entry.Details) > 0 {
		payload, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		detailsValue = payload
	}

	var accountValue any
	if entry.AccountID != nil && *entry.AccountID != "" {
		accountValue = *entry.AccountID
	}

	var sourceValue any
	if entry.SourceAddress != nil && *entry.SourceAddress != "" {
		sourceValue = *entry.SourceAddress
	}

	builder := r.builder.Insert("auth.audit_log")
	if entry.ID != "" {
		builder = builder.Columns("id", "account_id", "action", "details", "source_address", "created_at").
			Values(entry.ID, accountValue, entry.Action, detailsValue, sourceValue, createdAt)
	} else {
		builder = builder.Columns("account_id", "action", "details", "source_address", "created_at").
			Values(accountValue, entry.Action, detailsValue, sourceValue, createdAt)
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListByAccount returns the most recent audit entries for an account.
func (r *AuditLogRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.AuditEntry, error) {
	builder := r.builder.
		Select("id", "account_id", "action", "details", "source_address", "created_at").
		From("auth.audit_log").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

func scanAuditEntry(row pgx.Row) (domain.AuditEntry, error) {
	var (
		entry         domain.AuditEntry
		accountID     *string
		sourceAddress *string
		details       []byte
	)

	if err := row.Scan(
		&entry.ID,
		&accountID,
		&entry.Action,
		&details,
		&sourceAddress,
		&entry.CreatedAt,
	); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("scan audit entry: %w", err)
	}

	entry.AccountID = accountID
	entry.SourceAddress = sourceAddress

	if len(details) > 0 {
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return domain.AuditEntry{}, fmt.Errorf("unmarshal audit details: %w", err)
		}
	}

	return entry, nil
}

// DeleteOlderThan purges entries created before the cutoff and returns the
// number of rows removed.
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("auth.audit_log").
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge audit sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}

	return ct.RowsAffected(), nil
}

var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
