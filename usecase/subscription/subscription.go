// Package subscription manages durable (user, task) interest pairs. Push group
// membership is a separate, session-scoped concern.
package subscription

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type UseCase struct {
	subscriptions repository.SubscriptionRepository
	tasks         repository.TaskRepository
	users         repository.UserRepository
	logger        *zap.Logger
}

func New(subscriptions repository.SubscriptionRepository, tasks repository.TaskRepository, users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		subscriptions: subscriptions,
		tasks:         tasks,
		users:         users,
		logger:        logger,
	}
}

// Subscribe fails with CONFLICT when the pair already exists.
func (uc *UseCase) Subscribe(ctx context.Context, userID, taskID string) error {
	if err := uc.ensureTask(ctx, taskID); err != nil {
		return err
	}
	if _, err := uc.users.GetByID(ctx, userID); err != nil {
		return uc.fail("subscribe", err)
	}

	err := uc.subscriptions.Create(ctx, &domain.Subscription{
		UserID:    userID,
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return uc.fail("subscribe", err)
	}
	uc.logger.Debug("subscribed", zap.String("user_id", userID), zap.String("task_id", taskID))
	return nil
}

// Unsubscribe fails with NOT_FOUND when the pair does not exist.
func (uc *UseCase) Unsubscribe(ctx context.Context, userID, taskID string) error {
	if err := uc.subscriptions.Delete(ctx, userID, taskID); err != nil {
		return uc.fail("unsubscribe", err)
	}
	uc.logger.Debug("unsubscribed", zap.String("user_id", userID), zap.String("task_id", taskID))
	return nil
}

func (uc *UseCase) ListSubscribers(ctx context.Context, taskID string) ([]domain.Subscriber, error) {
	if err := uc.ensureTask(ctx, taskID); err != nil {
		return nil, err
	}
	subscribers, err := uc.subscriptions.ListByTask(ctx, taskID)
	if err != nil {
		return nil, uc.fail("list subscribers", err)
	}
	return subscribers, nil
}

func (uc *UseCase) IsSubscribed(ctx context.Context, userID, taskID string) (bool, error) {
	ok, err := uc.subscriptions.Exists(ctx, userID, taskID)
	if err != nil {
		return false, uc.fail("check subscription", err)
	}
	return ok, nil
}

func (uc *UseCase) ensureTask(ctx context.Context, taskID string) error {
	if _, err := uc.tasks.GetByID(ctx, taskID); err != nil {
		return uc.fail("load task", err)
	}
	return nil
}

func (uc *UseCase) fail(op string, err error) error {
	if domain.CodeOf(err) != domain.ErrCodeInternal {
		return err
	}
	uc.logger.Error(op+" failed", zap.Error(err))
	return domain.Internal(op+" failed", err)
}
