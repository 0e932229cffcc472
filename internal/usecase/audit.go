package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
)

// AuditRecorder appends entries to the security audit log. Writes are
// best-effort from the caller's perspective: a failed append is logged and
// never fails the surrounding operation.
type AuditRecorder struct {
	entries port.AuditLogRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditRecorder constructs an AuditRecorder instance.
func NewAuditRecorder(entries port.AuditLogRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{
		entries: entries,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (r *AuditRecorder) WithClock(now func() time.Time) *AuditRecorder {
	if now != nil {
		r.now = now
	}
	return r
}

// Record appends one audit entry. The entry id and timestamp are filled in
// when absent.
func (r *AuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	if err := r.entries.Record(ctx, entry); err != nil {
		r.logger.Warn("audit entry not recorded",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// Trail returns the most recent audit entries for an account.
func (r *AuditRecorder) Trail(ctx context.Context, accountID string, limit int) ([]domain.AuditEntry, error) {
	if accountID == "" {
		return nil, &ValidationError{Field: "accountId", Message: "account id is required"}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := r.entries.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// PurgeExpired removes entries older than the retention horizon and returns
// how many rows were deleted.
func (r *AuditRecorder) PurgeExpired(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, &ValidationError{Field: "retentionDays", Message: "retention must be positive"}
	}

	cutoff := r.now().UTC().AddDate(0, 0, -retentionDays)
	removed, err := r.entries.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}

	r.logger.Info("audit log purged",
		zap.Int("retention_days", retentionDays),
		zap.Time("cutoff", cutoff),
		zap.Int64("removed", removed),
	)

	return removed, nil
}
