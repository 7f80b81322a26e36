package repository

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

type SubscriptionRepository interface {
	// Create fails with ErrAlreadySubscribed when the pair exists.
	Create(ctx context.Context, subscription *domain.Subscription) error
	// Delete fails with ErrSubscriptionNotFound when the pair is absent.
	Delete(ctx context.Context, userID, taskID string) error
	Exists(ctx context.Context, userID, taskID string) (bool, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Subscriber, error)
}
