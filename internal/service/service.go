// Package service holds request-level business rules: input validation,
// ownership checks and event publication around the repositories.
package service

import (
	"context"

	"postboard/internal/models"
	"postboard/internal/notifications"
)

// EventPublisher receives activity events after their transaction commits.
// *notifications.Notifier satisfies it.
type EventPublisher interface {
	PublishBestEffort(ctx context.Context, eventType string, payload any)
}

var _ EventPublisher = (*notifications.Notifier)(nil)

type noopPublisher struct{}

func (noopPublisher) PublishBestEffort(context.Context, string, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func requireCaller(userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}
