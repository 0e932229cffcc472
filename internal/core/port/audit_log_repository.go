package port

import (
	"context"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
)

// AuditLogRepository persists the append-only security audit log.
type AuditLogRepository interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.AuditEntry, error)
	// DeleteOlderThan purges entries created before the cutoff and returns
	// the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
