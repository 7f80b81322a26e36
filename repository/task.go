package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskhub/domain"
)

// TaskSort orders listings by priority. Empty keeps newest first.
type TaskSort string

const (
	TaskSortNone         TaskSort = ""
	TaskSortPriorityAsc  TaskSort = "asc"
	TaskSortPriorityDesc TaskSort = "desc"
)

// TaskFilter narrows task listings. Zero values mean "no constraint", except
// IncludeCompleted which must be set to see completed tasks.
type TaskFilter struct {
	Status           domain.TaskStatus
	Priority         *int
	CategoryID       string
	IncludeCompleted bool
	DueFrom          *time.Time // inclusive
	DueBefore        *time.Time // exclusive
	// Search matches title or description, case-insensitively.
	Search           string
	// Sort by priority; ties stay newest first.
	Sort             TaskSort
	Limit            int
	Offset           int
}

// TaskPatch names the columns a write touches. Nil fields keep the stored
// value, so concurrent patches to different fields both survive.
type TaskPatch struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	CategoryID  *string
	UserWeight  *int
	Priority    *int
	Status      *domain.TaskStatus
	// CompletedAt is written only together with Status; nil clears it.
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// PriorityBasis is what a score was computed from.
type PriorityBasis struct {
	DueAt      time.Time
	CategoryID string
	UserWeight int
}

// BasisOf returns the inputs the task's score depends on.
func BasisOf(task domain.Task) PriorityBasis {
	return PriorityBasis{DueAt: task.DueAt, CategoryID: task.CategoryID, UserWeight: task.UserWeight}
}

// TaskRepository returns tasks with category name, category weight and
// subscribers already resolved.
type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// GetForUpdate reads the task and, inside a transaction, holds its row
	// lock until commit. Subscribers are not resolved.
	GetForUpdate(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	ListByPriority(ctx context.Context) ([]domain.Task, error)
	ListBySubscriber(ctx context.Context, userID string) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	Patch(ctx context.Context, id string, patch TaskPatch) error
	// UpdatePriority stores a rescore only while the task still matches
	// basis. It reports false when the task moved on or is gone.
	UpdatePriority(ctx context.Context, id string, priority int, updatedAt time.Time, basis PriorityBasis) (bool, error)
	Delete(ctx context.Context, id string) error
}
