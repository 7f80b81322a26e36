package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
)

func TestGetProfile(t *testing.T) {
	store := testutil.NewStore()
	ctx := context.Background()
	alice := store.AddUser("alice")
	category := store.AddCategory("work", 2)

	var ids []string
	for _, score := range []int{20, 80, 50} {
		task := domain.Task{
			Title:      "t",
			DueAt:      time.Now().Add(time.Hour),
			Priority:   score,
			UserWeight: 3,
			CategoryID: category.ID,
			Status:     domain.StatusIncomplete,
		}
		require.NoError(t, store.Tasks().Create(ctx, &task))
		ids = append(ids, task.ID)
	}
	require.NoError(t, store.Subscriptions().Create(ctx, &domain.Subscription{UserID: alice.ID, TaskID: ids[0]}))
	require.NoError(t, store.Subscriptions().Create(ctx, &domain.Subscription{UserID: alice.ID, TaskID: ids[1]}))

	uc := New(store.Users(), store.Tasks(), nil)

	profile, err := uc.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	require.Len(t, profile.SubscribedTasks, 2)
	assert.Equal(t, ids[1], profile.SubscribedTasks[0].ID)
	assert.Equal(t, ids[0], profile.SubscribedTasks[1].ID)

	_, err = uc.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
