package port

import (
	"context"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
)

// EventPublisher publishes security events to the message bus.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
}
