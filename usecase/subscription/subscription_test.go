package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
)

func setup(t *testing.T) (*UseCase, *testutil.Store, domain.Task) {
	t.Helper()
	store := testutil.NewStore()
	category := store.AddCategory("work", 2)
	task := domain.Task{
		Title:      "Review",
		DueAt:      time.Now().Add(24 * time.Hour),
		UserWeight: 3,
		CategoryID: category.ID,
		Status:     domain.StatusIncomplete,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, store.Tasks().Create(context.Background(), &task))
	return New(store.Subscriptions(), store.Tasks(), store.Users(), nil), store, task
}

func TestSubscribe(t *testing.T) {
	uc, store, task := setup(t)
	ctx := context.Background()
	bob := store.AddUser("bob")

	require.NoError(t, uc.Subscribe(ctx, bob.ID, task.ID))

	t.Run("second subscribe conflicts", func(t *testing.T) {
		err := uc.Subscribe(ctx, bob.ID, task.ID)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
		assert.Equal(t, 1, store.SubscriptionCount(task.ID))
	})

	t.Run("unknown task or user is not found", func(t *testing.T) {
		assert.ErrorIs(t, uc.Subscribe(ctx, bob.ID, "missing"), domain.ErrTaskNotFound)
		assert.ErrorIs(t, uc.Subscribe(ctx, "ghost", task.ID), domain.ErrUserNotFound)
	})

	t.Run("membership is reported", func(t *testing.T) {
		ok, err := uc.IsSubscribed(ctx, bob.ID, task.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = uc.IsSubscribed(ctx, "ghost", task.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestUnsubscribe(t *testing.T) {
	uc, store, task := setup(t)
	ctx := context.Background()
	bob := store.AddUser("bob")

	err := uc.Unsubscribe(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	require.NoError(t, uc.Subscribe(ctx, bob.ID, task.ID))
	require.NoError(t, uc.Unsubscribe(ctx, bob.ID, task.ID))
	assert.Equal(t, 0, store.SubscriptionCount(task.ID))

	// the pair can be created again once removed
	require.NoError(t, uc.Subscribe(ctx, bob.ID, task.ID))
}

func TestListSubscribers(t *testing.T) {
	uc, store, task := setup(t)
	ctx := context.Background()
	bob := store.AddUser("bob")
	carol := store.AddUser("carol")

	require.NoError(t, uc.Subscribe(ctx, bob.ID, task.ID))
	require.NoError(t, uc.Subscribe(ctx, carol.ID, task.ID))

	subscribers, err := uc.ListSubscribers(ctx, task.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Subscriber{
		{UserID: bob.ID, Username: "bob"},
		{UserID: carol.ID, Username: "carol"},
	}, subscribers)

	_, err = uc.ListSubscribers(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
