package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.logEvent("auth.login.succeeded", event.OccurredAt, map[string]any{
		"account_id":     event.AccountID,
		"username":       event.Username,
		"source_address": logger.MaskIP(event.SourceAddress),
	})
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.logEvent("auth.login.failed", event.OccurredAt, map[string]any{
		"account_id":         event.AccountID,
		"username":           event.Username,
		"source_address":     logger.MaskIP(event.SourceAddress),
		"remaining_attempts": event.RemainingAttempts,
	})
	return nil
}

// PublishAccountLocked logs auth.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.logEvent("auth.account.locked", event.OccurredAt, map[string]any{
		"account_id":     event.AccountID,
		"username":       event.Username,
		"source_address": logger.MaskIP(event.SourceAddress),
		"locked_until":   event.LockedUntil,
	})
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("auth.password.changed", event.ChangedAt, map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"expires_at": event.ExpiresAt,
	})
	return nil
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"username":      event.Username,
		"registered_at": event.RegisteredAt,
	}
	if event.Email != nil {
		payload["email"] = logger.MaskEmail(*event.Email)
	}
	if event.Phone != nil {
		payload["phone"] = logger.MaskPhone(*event.Phone)
	}
	p.logEvent("auth.user.registered", event.RegisteredAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
