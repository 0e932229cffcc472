package port

import (
	"context"
	"time"
)

// RateLimitStore persists attempt timestamps for sliding-window throttling of
// the public auth endpoints.
type RateLimitStore interface {
	// TrimWindow drops attempts that fell out of the window relative to reference.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	// CountAttempts returns how many attempts remain inside the window.
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	// RecordAttempt stores one attempt timestamp for the identifier.
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// OldestAttempt returns the earliest attempt still inside the window, used
	// to compute a Retry-After hint.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
