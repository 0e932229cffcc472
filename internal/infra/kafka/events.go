package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/port"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/config"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if requestID, ok := ctx.Value(logger.RequestIDKey{}).(string); ok && requestID != "" {
		metadata["request_id"] = requestID
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		AccountID     string         `json:"account_id"`
		Username      string         `json:"username"`
		SourceAddress string         `json:"source_address"`
		OccurredAt    time.Time      `json:"occurred_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		Username:      event.Username,
		SourceAddress: logger.MaskIP(event.SourceAddress),
		OccurredAt:    event.OccurredAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.AccountID, event.OccurredAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		AccountID         *string        `json:"account_id,omitempty"`
		Username          string         `json:"username"`
		SourceAddress     string         `json:"source_address"`
		RemainingAttempts int            `json:"remaining_attempts"`
		OccurredAt        time.Time      `json:"occurred_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:         event.AccountID,
		Username:          event.Username,
		SourceAddress:     logger.MaskIP(event.SourceAddress),
		RemainingAttempts: event.RemainingAttempts,
		OccurredAt:        event.OccurredAt.UTC(),
		Metadata:          event.Metadata,
	}

	accountID := ""
	if event.AccountID != nil {
		accountID = *event.AccountID
	}

	return p.publish(ctx, event.EventID, "auth.login.failed", accountID, event.OccurredAt, payload)
}

// PublishAccountLocked publishes auth.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID     *string        `json:"account_id,omitempty"`
		Username      string         `json:"username"`
		SourceAddress string         `json:"source_address"`
		LockedUntil   time.Time      `json:"locked_until"`
		OccurredAt    time.Time      `json:"occurred_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		Username:      event.Username,
		SourceAddress: logger.MaskIP(event.SourceAddress),
		LockedUntil:   event.LockedUntil.UTC(),
		OccurredAt:    event.OccurredAt.UTC(),
		Metadata:      event.Metadata,
	}

	accountID := ""
	if event.AccountID != nil {
		accountID = *event.AccountID
	}

	return p.publish(ctx, event.EventID, "auth.account.locked", accountID, event.OccurredAt, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ExpiresAt time.Time      `json:"expires_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		ExpiresAt: event.ExpiresAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.password.changed", event.AccountID, event.ChangedAt, payload)
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	var email *string
	if event.Email != nil {
		masked := logger.MaskEmail(*event.Email)
		email = &masked
	}
	var phone *string
	if event.Phone != nil {
		masked := logger.MaskPhone(*event.Phone)
		phone = &masked
	}

	payload := struct {
		AccountID    string         `json:"account_id"`
		Username     string         `json:"username"`
		Email        *string        `json:"email,omitempty"`
		Phone        *string        `json:"phone,omitempty"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Username:     event.Username,
		Email:        email,
		Phone:        phone,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.user.registered", event.AccountID, event.RegisteredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
