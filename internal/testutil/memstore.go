// Package testutil holds in-memory repositories for use case and handler tests.
package testutil

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

// Store keeps every aggregate in maps guarded by one mutex. Repositories
// returned by its accessors share the same state.
type Store struct {
	mu            sync.Mutex
	users         map[string]domain.User
	categories    map[string]domain.Category
	tasks         map[string]domain.Task
	taskSeq       map[string]int
	subscriptions []domain.Subscription
	sessions      map[string]domain.Session
	seq           int

	// FailSubscriptionCreate, when set, is returned by the next subscription insert.
	FailSubscriptionCreate error
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		categories: make(map[string]domain.Category),
		tasks:      make(map[string]domain.Task),
		taskSeq:    make(map[string]int),
		sessions:   make(map[string]domain.Session),
	}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Categories() repository.CategoryRepository { return categoryRepo{s} }
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return subscriptionRepo{s} }
func (s *Store) Sessions() repository.SessionRepository { return sessionRepo{s} }
func (s *Store) Transactor() repository.Transactor { return transactor{s} }

// TaskCount and SubscriptionCount expose raw state for assertions.
func (s *Store) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Store) SubscriptionCount(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, sub := range s.subscriptions {
		if sub.TaskID == taskID {
			count++
		}
	}
	return count
}

// AddUser and AddCategory seed fixtures and return the stored entity.
func (s *Store) AddUser(username string) domain.User {
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Users().Create(context.Background(), &user); err != nil {
		panic(err)
	}
	return user
}

func (s *Store) AddCategory(name string, weight int) domain.Category {
	category := domain.Category{ID: uuid.NewString(), Name: name, Weight: weight}
	if err := s.Categories().Create(context.Background(), &category); err != nil {
		panic(err)
	}
	return category
}

type snapshot struct {
	users         map[string]domain.User
	categories    map[string]domain.Category
	tasks         map[string]domain.Task
	taskSeq       map[string]int
	subscriptions []domain.Subscription
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		users:         maps.Clone(s.users),
		categories:    maps.Clone(s.categories),
		tasks:         maps.Clone(s.tasks),
		taskSeq:       maps.Clone(s.taskSeq),
		subscriptions: slices.Clone(s.subscriptions),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.categories = snap.categories
	s.tasks = snap.tasks
	s.taskSeq = snap.taskSeq
	s.subscriptions = snap.subscriptions
}

type txKey struct{}

type transactor struct{ s *Store }

// WithinTx restores the pre-transaction state when fn fails. Sessions are not
// part of the snapshot; they live in Redis in production.
func (t transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.s.users[user.ID] = *user
	return nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	category.TaskCount = r.s.countTasks(id)
	return &category, nil
}

func (r categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Category, 0, len(r.s.categories))
	for _, category := range r.s.categories {
		category.TaskCount = r.s.countTasks(category.ID)
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (s *Store) countTasks(categoryID string) int {
	count := 0
	for _, task := range s.tasks {
		if task.CategoryID == categoryID {
			count++
		}
	}
	return count
}

type taskRepo struct{ s *Store }

func (r taskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	resolved := r.s.resolve(task)
	return &resolved, nil
}

// GetForUpdate takes no lock; the store serialises each call instead.
func (r taskRepo) GetForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	return r.GetByID(ctx, id)
}

func (r taskRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.TrimSpace(filter.Search)
	out := r.s.collect(func(task domain.Task) bool {
		switch {
		case filter.Status != "" && task.Status != filter.Status:
			return false
		case filter.Priority != nil && task.Priority != *filter.Priority:
			return false
		case filter.CategoryID != "" && task.CategoryID != filter.CategoryID:
			return false
		case !filter.IncludeCompleted && task.Status == domain.StatusCompleted:
			return false
		case filter.DueFrom != nil && task.DueAt.Before(*filter.DueFrom):
			return false
		case filter.DueBefore != nil && !task.DueAt.Before(*filter.DueBefore):
			return false
		case search != "" && !containsFold(task.Title, search) && !containsFold(task.Description, search):
			return false
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		return r.s.taskSeq[out[i].ID] > r.s.taskSeq[out[j].ID]
	})
	switch filter.Sort {
	case repository.TaskSortPriorityAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	case repository.TaskSortPriorityDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if filter.Offset >= len(out) {
		return []domain.Task{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r taskRepo) ListByPriority(_ context.Context) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.collect(func(task domain.Task) bool { return task.Status != domain.StatusCompleted })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out, nil
}

func (r taskRepo) ListBySubscriber(_ context.Context, userID string) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	subscribed := make(map[string]bool)
	for _, sub := range r.s.subscriptions {
		if sub.UserID == userID {
			subscribed[sub.TaskID] = true
		}
	}
	out := r.s.collect(func(task domain.Task) bool { return subscribed[task.ID] })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (r taskRepo) Create(_ context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[task.CategoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	r.s.seq++
	r.s.taskSeq[task.ID] = r.s.seq
	r.s.tasks[task.ID] = r.s.stored(*task)
	return nil
}

func (r taskRepo) Patch(_ context.Context, id string, patch repository.TaskPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if patch.CategoryID != nil {
		if _, ok := r.s.categories[*patch.CategoryID]; !ok {
			return domain.ErrCategoryNotFound
		}
		task.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.DueAt != nil {
		task.DueAt = *patch.DueAt
	}
	if patch.UserWeight != nil {
		task.UserWeight = *patch.UserWeight
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
		task.CompletedAt = patch.CompletedAt
	}
	updatedAt := patch.UpdatedAt
	task.UpdatedAt = &updatedAt
	r.s.tasks[id] = task
	return nil
}

func (r taskRepo) UpdatePriority(_ context.Context, id string, priority int, updatedAt time.Time, basis repository.PriorityBasis) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[id]
	if !ok || task.Status == domain.StatusCompleted {
		return false, nil
	}
	if !task.DueAt.Equal(basis.DueAt) || task.CategoryID != basis.CategoryID || task.UserWeight != basis.UserWeight {
		return false, nil
	}
	task.Priority = priority
	task.UpdatedAt = &updatedAt
	r.s.tasks[id] = task
	return true, nil
}

func (r taskRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.s.tasks, id)
	delete(r.s.taskSeq, id)
	r.s.subscriptions = slices.DeleteFunc(r.s.subscriptions, func(sub domain.Subscription) bool {
		return sub.TaskID == id
	})
	return nil
}

// stored drops the read-model fields before a task is kept.
func (s *Store) stored(task domain.Task) domain.Task {
	task.CategoryName = ""
	task.CategoryWeight = 0
	task.Subscribers = nil
	return task
}

func (s *Store) resolve(task domain.Task) domain.Task {
	category := s.categories[task.CategoryID]
	task.CategoryName = category.Name
	task.CategoryWeight = category.Weight
	task.Subscribers = s.subscribersOf(task.ID)
	return task
}

func (s *Store) collect(keep func(domain.Task) bool) []domain.Task {
	out := make([]domain.Task, 0)
	for _, task := range s.tasks {
		if keep(task) {
			out = append(out, s.resolve(task))
		}
	}
	// map iteration is random; start from insertion order
	sort.Slice(out, func(i, j int) bool { return s.taskSeq[out[i].ID] < s.taskSeq[out[j].ID] })
	return out
}

func (s *Store) subscribersOf(taskID string) []domain.Subscriber {
	out := []domain.Subscriber{}
	for _, sub := range s.subscriptions {
		if sub.TaskID == taskID {
			out = append(out, domain.Subscriber{UserID: sub.UserID, Username: s.users[sub.UserID].Username})
		}
	}
	return out
}

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) Create(_ context.Context, subscription *domain.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailSubscriptionCreate; err != nil {
		r.s.FailSubscriptionCreate = nil
		return err
	}
	if _, ok := r.s.users[subscription.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.s.tasks[subscription.TaskID]; !ok {
		return domain.ErrTaskNotFound
	}
	if r.s.indexOf(subscription.UserID, subscription.TaskID) >= 0 {
		return domain.ErrAlreadySubscribed
	}
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = time.Now().UTC()
	}
	r.s.subscriptions = append(r.s.subscriptions, *subscription)
	return nil
}

func (r subscriptionRepo) Delete(_ context.Context, userID, taskID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.indexOf(userID, taskID)
	if i < 0 {
		return domain.ErrSubscriptionNotFound
	}
	r.s.subscriptions = slices.Delete(r.s.subscriptions, i, i+1)
	return nil
}

func (r subscriptionRepo) Exists(_ context.Context, userID, taskID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.indexOf(userID, taskID) >= 0, nil
}

func (r subscriptionRepo) ListByTask(_ context.Context, taskID string) ([]domain.Subscriber, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.subscribersOf(taskID), nil
}

func (s *Store) indexOf(userID, taskID string) int {
	return slices.IndexFunc(s.subscriptions, func(sub domain.Subscription) bool {
		return sub.UserID == userID && sub.TaskID == taskID
	})
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r sessionRepo) Save(_ context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.ID] = *session
	return nil
}

func (r sessionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r sessionRepo) Extend(_ context.Context, id string, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = time.Now().Add(ttl)
	r.s.sessions[id] = session
	return nil
}

func containsFold(text, query string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}
