package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

const taskColumns = `
	t.id, t.title, t.description, t.due_at, t.priority, t.user_weight,
	t.category_id, c.name, c.weight, t.status, t.created_at, t.updated_at, t.completed_at
`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks t
	JOIN categories c ON c.id = t.category_id
	WHERE t.id = $1
	`
	db := executorFrom(ctx, r.pool)
	task, err := scanTask(db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	tasks := []domain.Task{*task}
	if err := r.attachSubscribers(ctx, db, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// GetForUpdate locks the task row for the surrounding transaction.
func (r *taskRepository) GetForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks t
	JOIN categories c ON c.id = t.category_id
	WHERE t.id = $1
	FOR UPDATE OF t
	`
	return scanTask(executorFrom(ctx, r.pool).QueryRow(ctx, query, id))
}

// List filters, searches and orders in SQL so the page is cut last.
func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks t
	JOIN categories c ON c.id = t.category_id
	WHERE ($1 = '' OR t.status = $1)
	  AND ($2::int IS NULL OR t.priority = $2)
	  AND ($3 = '' OR t.category_id = $3)
	  AND ($4 OR t.status <> 'Completed')
	  AND ($5::timestamptz IS NULL OR t.due_at >= $5)
	  AND ($6::timestamptz IS NULL OR t.due_at < $6)
	  AND ($9 = '' OR t.title ILIKE '%' || $9 || '%' OR t.description ILIKE '%' || $9 || '%')
	ORDER BY
		CASE WHEN $10 = 'asc' THEN t.priority END ASC,
		CASE WHEN $10 = 'desc' THEN t.priority END DESC,
		t.created_at DESC
	LIMIT $7 OFFSET $8
	`
	return r.query(ctx, query,
		string(filter.Status),
		filter.Priority,
		filter.CategoryID,
		filter.IncludeCompleted,
		filter.DueFrom,
		filter.DueBefore,
		clampLimit(filter.Limit),
		filter.Offset,
		likePattern(filter.Search),
		string(filter.Sort),
	)
}

func (r *taskRepository) ListByPriority(ctx context.Context) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks t
	JOIN categories c ON c.id = t.category_id
	WHERE t.status <> 'Completed'
	ORDER BY t.priority DESC, t.due_at ASC
	`
	return r.query(ctx, query)
}

func (r *taskRepository) ListBySubscriber(ctx context.Context, userID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM task_subscriptions s
	JOIN tasks t ON t.id = s.task_id
	JOIN categories c ON c.id = t.category_id
	WHERE s.user_id = $1
	ORDER BY t.priority DESC
	`
	return r.query(ctx, query, userID)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, title, description, due_at, priority, user_weight, category_id, status, created_at, updated_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := executorFrom(ctx, r.pool).Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueAt,
		task.Priority,
		task.UserWeight,
		task.CategoryID,
		string(task.Status),
		task.CreatedAt,
		task.UpdatedAt,
		task.CompletedAt,
	)
	return mapTaskWriteError(err)
}

// Patch writes only the columns set in patch, plus updated_at.
func (r *taskRepository) Patch(ctx context.Context, id string, patch repository.TaskPatch) error {
	sets := make([]string, 0, 9)
	args := []any{id}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.DueAt != nil {
		set("due_at", *patch.DueAt)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.UserWeight != nil {
		set("user_weight", *patch.UserWeight)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
		set("completed_at", patch.CompletedAt)
	}
	set("updated_at", patch.UpdatedAt)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := executorFrom(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return mapTaskWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// UpdatePriority matches on the score inputs, so a rescore computed before a
// concurrent edit affects no rows.
func (r *taskRepository) UpdatePriority(ctx context.Context, id string, priority int, updatedAt time.Time, basis repository.PriorityBasis) (bool, error) {
	const query = `
	UPDATE tasks
	SET priority = $2, updated_at = $3
	WHERE id = $1
	  AND due_at = $4
	  AND category_id = $5
	  AND user_weight = $6
	  AND status <> 'Completed'
	`
	tag, err := executorFrom(ctx, r.pool).Exec(ctx, query,
		id, priority, updatedAt, basis.DueAt, basis.CategoryID, basis.UserWeight)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the task; its subscriptions go with it through ON DELETE CASCADE.
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := executorFrom(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) query(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	db := executorFrom(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachSubscribers(ctx, db, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// attachSubscribers loads subscribers for all tasks in one round-trip.
func (r *taskRepository) attachSubscribers(ctx context.Context, db executor, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = i
		tasks[i].Subscribers = []domain.Subscriber{}
	}

	const query = `
	SELECT s.task_id, u.id, u.username
	FROM task_subscriptions s
	JOIN users u ON u.id = s.user_id
	WHERE s.task_id = ANY($1)
	ORDER BY s.created_at, u.username
	`
	rows, err := db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID     string
			subscriber domain.Subscriber
		)
		if err := rows.Scan(&taskID, &subscriber.UserID, &subscriber.Username); err != nil {
			return err
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Subscribers = append(tasks[i].Subscribers, subscriber)
		}
	}
	return rows.Err()
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task   domain.Task
		status string
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueAt,
		&task.Priority,
		&task.UserWeight,
		&task.CategoryID,
		&task.CategoryName,
		&task.CategoryWeight,
		&status,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	return &task, nil
}

func mapTaskWriteError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := constraintViolation(err, codeForeignKeyViolation); ok && strings.Contains(constraint, "category") {
		return domain.ErrCategoryNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern escapes LIKE wildcards so the search matches literally.
func likePattern(search string) string {
	return likeEscaper.Replace(strings.TrimSpace(search))
}
