package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type UseCase struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		tasks:  tasks,
		logger: logger,
	}
}

// GetProfile returns the user with the tasks they subscribe to, highest
// priority first.
func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		uc.logger.Error("load user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, domain.Internal("get profile failed", err)
	}

	tasks, err := uc.tasks.ListBySubscriber(ctx, userID)
	if err != nil {
		uc.logger.Error("load subscribed tasks failed", zap.String("user_id", userID), zap.Error(err))
		return nil, domain.Internal("get profile failed", err)
	}
	return &domain.Profile{User: *user, SubscribedTasks: tasks}, nil
}
