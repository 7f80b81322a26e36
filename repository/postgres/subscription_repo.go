package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository returns a Postgres-backed SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *domain.Subscription) error {
	if subscription == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO task_subscriptions (user_id, task_id, created_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id, task_id) DO NOTHING
	`
	tag, err := executorFrom(ctx, r.pool).Exec(ctx, query,
		subscription.UserID,
		subscription.TaskID,
		subscription.CreatedAt,
	)
	if err != nil {
		if constraint, ok := constraintViolation(err, codeForeignKeyViolation); ok {
			if strings.Contains(constraint, "user") {
				return domain.ErrUserNotFound
			}
			return domain.ErrTaskNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySubscribed
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, userID, taskID string) error {
	const query = `DELETE FROM task_subscriptions WHERE user_id = $1 AND task_id = $2`
	tag, err := executorFrom(ctx, r.pool).Exec(ctx, query, userID, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *subscriptionRepository) Exists(ctx context.Context, userID, taskID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM task_subscriptions WHERE user_id = $1 AND task_id = $2)`
	var exists bool
	err := executorFrom(ctx, r.pool).QueryRow(ctx, query, userID, taskID).Scan(&exists)
	return exists, err
}

func (r *subscriptionRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Subscriber, error) {
	const query = `
	SELECT u.id, u.username
	FROM task_subscriptions s
	JOIN users u ON u.id = s.user_id
	WHERE s.task_id = $1
	ORDER BY s.created_at, u.username
	`
	rows, err := executorFrom(ctx, r.pool).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscribers := make([]domain.Subscriber, 0)
	for rows.Next() {
		var subscriber domain.Subscriber
		if err := rows.Scan(&subscriber.UserID, &subscriber.Username); err != nil {
			return nil, err
		}
		subscribers = append(subscribers, subscriber)
	}
	return subscribers, rows.Err()
}
