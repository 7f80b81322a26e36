package task

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	appLogger "github.com/fastygo/taskhub/pkg/logger"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/usecase"
	"github.com/fastygo/taskhub/usecase/priority"
	"github.com/fastygo/taskhub/usecase/taskfilter"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Repositories groups the stores the lifecycle manager writes through.
type Repositories struct {
	Tasks         repository.TaskRepository
	Categories    repository.CategoryRepository
	Users         repository.UserRepository
	Subscriptions repository.SubscriptionRepository
	Tx            repository.Transactor
}

// Options tunes recomputation on partial updates.
type Options struct {
	// DefaultUserWeight replaces a missing user weight when an update
	// triggers recomputation.
	DefaultUserWeight int
	// PreserveUserWeight reuses the weight stored on the task instead.
	PreserveUserWeight bool
	Now                func() time.Time
}

type UseCase struct {
	repos    Repositories
	engine   *priority.Engine
	notifier usecase.ChangeNotifier
	opts     Options
	logger   *zap.Logger
}

func New(repos Repositories, engine *priority.Engine, notifier usecase.ChangeNotifier, opts Options, logger *zap.Logger) *UseCase {
	if engine == nil {
		engine = priority.NewEngine(priority.DefaultConfig())
	}
	if !priority.ValidUserWeight(opts.DefaultUserWeight) {
		opts.DefaultUserWeight = priority.DefaultUserWeight
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		repos:    repos,
		engine:   engine,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// CreateInput carries a new task. CreatorID is the authenticated user.
type CreateInput struct {
	Title       string
	Description string
	DueAt       time.Time
	CategoryID  string
	UserWeight  int
	CreatorID   string
}

// UpdateInput is a patch: nil fields keep their stored value.
type UpdateInput struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	CategoryID  *string
	UserWeight  *int
	Status      *domain.TaskStatus
}

// ListInput combines store-side filters with the in-memory refinements.
type ListInput struct {
	Status           domain.TaskStatus
	Priority         *int
	CategoryID       string
	IncludeCompleted bool
	From             *time.Time
	To               *time.Time
	Search           string
	Sort             taskfilter.SortOrder
	Limit            int
	Offset           int
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := uc.repos.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, uc.fail("get task", err)
	}
	return task, nil
}

// ListTasks filters, searches and sorts in the store before the page is cut.
// The same predicates run again in memory over the returned page.
func (uc *UseCase) ListTasks(ctx context.Context, in ListInput) ([]domain.Task, error) {
	if in.Offset < 0 {
		return nil, domain.Invalid("offset must not be negative")
	}
	if in.From != nil && in.To != nil && taskfilter.Day(*in.To).Before(taskfilter.Day(*in.From)) {
		return nil, domain.Invalid("from must not be after to")
	}

	filter := repository.TaskFilter{
		Status:           in.Status,
		Priority:         in.Priority,
		CategoryID:       in.CategoryID,
		IncludeCompleted: in.IncludeCompleted || in.Status == domain.StatusCompleted,
		Search:           strings.TrimSpace(in.Search),
		Sort:             repository.TaskSort(in.Sort),
		Limit:            in.Limit,
		Offset:           in.Offset,
	}
	if in.From != nil {
		from := taskfilter.Day(*in.From)
		filter.DueFrom = &from
	}
	if in.To != nil {
		before := taskfilter.Day(*in.To).AddDate(0, 0, 1)
		filter.DueBefore = &before
	}

	tasks, err := uc.repos.Tasks.List(ctx, filter)
	if err != nil {
		return nil, uc.fail("list tasks", err)
	}
	return taskfilter.Apply(tasks, taskfilter.Filter{
		Search:  in.Search,
		Status:  in.Status,
		DueFrom: in.From,
		DueTo:   in.To,
		Sort:    in.Sort,
	}), nil
}

// ListByPriority returns incomplete tasks, highest score first.
func (uc *UseCase) ListByPriority(ctx context.Context) ([]domain.Task, error) {
	tasks, err := uc.repos.Tasks.ListByPriority(ctx)
	if err != nil {
		return nil, uc.fail("list tasks by priority", err)
	}
	return tasks, nil
}

// CreateTask stores the task and subscribes its creator in one transaction.
func (uc *UseCase) CreateTask(ctx context.Context, in CreateInput) (*domain.Task, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if in.DueAt.IsZero() {
		return nil, domain.Invalid("due_date is required")
	}
	if !priority.ValidUserWeight(in.UserWeight) {
		return nil, domain.Invalid("user_weight must be between 1 and 5")
	}
	if in.CategoryID == "" {
		return nil, domain.Invalid("category_id is required")
	}
	if in.CreatorID == "" {
		return nil, domain.ErrUnauthorized
	}

	category, err := uc.repos.Categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, uc.fail("create task", err)
	}
	if _, err := uc.repos.Users.GetByID(ctx, in.CreatorID); err != nil {
		return nil, uc.fail("create task", err)
	}

	now := uc.opts.Now()
	task := &domain.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueAt:       in.DueAt.UTC(),
		UserWeight:  in.UserWeight,
		CategoryID:  category.ID,
		Status:      domain.StatusIncomplete,
		CreatedAt:   now,
	}
	task.Priority = uc.engine.Score(category.Weight, in.UserWeight, task.DueAt, now)

	err = uc.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repos.Tasks.Create(ctx, task); err != nil {
			return err
		}
		return uc.repos.Subscriptions.Create(ctx, &domain.Subscription{
			UserID:    in.CreatorID,
			TaskID:    task.ID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, uc.fail("create task", err)
	}

	created, err := uc.repos.Tasks.GetByID(ctx, task.ID)
	if err != nil {
		return nil, uc.fail("create task", err)
	}
	appLogger.WithRequestID(ctx, uc.logger).Info("task created",
		zap.String("task_id", created.ID),
		zap.String("creator_id", in.CreatorID),
		zap.Int("priority", created.Priority))
	uc.notify(func(n usecase.ChangeNotifier) { n.TaskCreated(*created) })
	return created, nil
}

// UpdateTask applies a patch. A new due date, category or user weight
// recomputes the score; without a supplied weight the configured default
// (or the stored weight, when preserving) is used. Only the patched columns
// are written, under a row lock, so concurrent edits to other fields survive.
func (uc *UseCase) UpdateTask(ctx context.Context, id string, in UpdateInput) (*domain.Task, error) {
	var patch repository.TaskPatch
	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
		description := strings.TrimSpace(*in.Description)
		patch.Description = &description
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if in.DueAt != nil {
		if in.DueAt.IsZero() {
			return nil, domain.Invalid("due_date must not be empty")
		}
		due := in.DueAt.UTC()
		patch.DueAt = &due
	}
	if in.UserWeight != nil {
		if !priority.ValidUserWeight(*in.UserWeight) {
			return nil, domain.Invalid("user_weight must be between 1 and 5")
		}
		weight := *in.UserWeight
		patch.UserWeight = &weight
	}
	recompute := in.CategoryID != nil || patch.DueAt != nil || patch.UserWeight != nil

	err := uc.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		task, err := uc.repos.Tasks.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		categoryWeight := task.CategoryWeight
		if in.CategoryID != nil {
			category, err := uc.repos.Categories.GetByID(ctx, *in.CategoryID)
			if err != nil {
				return err
			}
			patch.CategoryID = &category.ID
			categoryWeight = category.Weight
		}

		now := uc.opts.Now()
		if recompute {
			due := task.DueAt
			if patch.DueAt != nil {
				due = *patch.DueAt
			}
			if patch.UserWeight == nil {
				weight := uc.fallbackWeight(task)
				patch.UserWeight = &weight
			}
			score := uc.engine.Score(categoryWeight, *patch.UserWeight, due, now)
			patch.Priority = &score
		}
		if in.Status != nil && *in.Status != task.Status {
			task.SetStatus(*in.Status, now)
			patch.Status = &task.Status
			patch.CompletedAt = task.CompletedAt
		}
		patch.UpdatedAt = now
		return uc.repos.Tasks.Patch(ctx, id, patch)
	})
	if err != nil {
		return nil, uc.fail("update task", err)
	}

	updated, err := uc.repos.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, uc.fail("update task", err)
	}
	appLogger.WithRequestID(ctx, uc.logger).Debug("task updated",
		zap.String("task_id", id),
		zap.Bool("recomputed", recompute),
		zap.Int("priority", updated.Priority))
	uc.notify(func(n usecase.ChangeNotifier) { n.TaskUpdated(*updated) })
	return updated, nil
}

// SetState changes only the status and announces the new state, not the task.
// Status, completed_at and updated_at are the only columns written.
func (uc *UseCase) SetState(ctx context.Context, id string, state string) (*domain.Task, error) {
	status, err := domain.ParseTaskStatus(state)
	if err != nil {
		return nil, err
	}

	err = uc.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		task, err := uc.repos.Tasks.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := uc.opts.Now()
		patch := repository.TaskPatch{UpdatedAt: now}
		if task.Status != status {
			task.SetStatus(status, now)
			patch.Status = &task.Status
			patch.CompletedAt = task.CompletedAt
		}
		return uc.repos.Tasks.Patch(ctx, id, patch)
	})
	if err != nil {
		return nil, uc.fail("set task state", err)
	}

	task, err := uc.repos.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, uc.fail("set task state", err)
	}
	uc.notify(func(n usecase.ChangeNotifier) { n.TaskStateChanged(id, status) })
	return task, nil
}

// DeleteTask removes the task together with its subscriptions.
func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	if err := uc.repos.Tasks.Delete(ctx, id); err != nil {
		return uc.fail("delete task", err)
	}
	appLogger.WithRequestID(ctx, uc.logger).Info("task deleted", zap.String("task_id", id))
	uc.notify(func(n usecase.ChangeNotifier) { n.TaskDeleted(id) })
	return nil
}

// RefreshPriorities rescores incomplete tasks against the current time and
// persists the ones whose score moved. A task edited after the listing keeps
// the score its edit wrote. It returns how many changed.
func (uc *UseCase) RefreshPriorities(ctx context.Context) (int, error) {
	tasks, err := uc.repos.Tasks.ListByPriority(ctx)
	if err != nil {
		return 0, uc.fail("refresh priorities", err)
	}

	now := uc.opts.Now()
	changed := 0
	for i := range tasks {
		task := &tasks[i]
		weight := task.UserWeight
		if !priority.ValidUserWeight(weight) {
			weight = uc.opts.DefaultUserWeight
		}
		score := uc.engine.Score(task.CategoryWeight, weight, task.DueAt, now)
		if score == task.Priority {
			continue
		}

		applied, err := uc.repos.Tasks.UpdatePriority(ctx, task.ID, score, now, repository.BasisOf(*task))
		if err != nil {
			return changed, uc.fail("refresh priorities", err)
		}
		if !applied {
			// edited, completed or deleted since the listing
			continue
		}
		task.Priority = score
		task.Touch(now)
		changed++

		refreshed := *task
		uc.notify(func(n usecase.ChangeNotifier) { n.TaskUpdated(refreshed) })
	}
	return changed, nil
}

func (uc *UseCase) fallbackWeight(task *domain.Task) int {
	if uc.opts.PreserveUserWeight && priority.ValidUserWeight(task.UserWeight) {
		return task.UserWeight
	}
	return uc.opts.DefaultUserWeight
}

func (uc *UseCase) notify(fn func(usecase.ChangeNotifier)) {
	if uc.notifier == nil {
		return
	}
	fn(uc.notifier)
}

// fail passes domain errors through and hides anything else behind INTERNAL.
func (uc *UseCase) fail(op string, err error) error {
	if domain.CodeOf(err) != domain.ErrCodeInternal {
		return err
	}
	uc.logger.Error(op+" failed", zap.Error(err))
	return domain.Internal(op+" failed", err)
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.Invalid("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", domain.Invalid("title must be at most 200 characters")
	}
	return title, nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxDescriptionLength {
		return domain.Invalid("description must be at most 1000 characters")
	}
	return nil
}
