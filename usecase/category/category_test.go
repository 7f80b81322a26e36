package category

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	store := testutil.NewStore()
	uc := New(store.Categories(), nil)
	ctx := context.Background()

	created, err := uc.CreateCategory(ctx, "  Work ", 3)
	require.NoError(t, err)
	assert.Equal(t, "Work", created.Name)
	assert.Equal(t, 3, created.Weight)
	assert.NotEmpty(t, created.ID)

	fetched, err := uc.GetCategory(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Zero(t, fetched.TaskCount)

	t.Run("validation", func(t *testing.T) {
		for _, tc := range []struct {
			name   string
			weight int
		}{
			{"", 2},
			{strings.Repeat("x", 51), 2},
			{"ok", 0},
			{"ok", 5},
		} {
			_, err := uc.CreateCategory(ctx, tc.name, tc.weight)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "name=%q weight=%d", tc.name, tc.weight)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := uc.GetCategory(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	})
}

func TestListCategories(t *testing.T) {
	store := testutil.NewStore()
	uc := New(store.Categories(), nil)
	ctx := context.Background()

	_, err := uc.CreateCategory(ctx, "home", 1)
	require.NoError(t, err)
	_, err = uc.CreateCategory(ctx, "errands", 2)
	require.NoError(t, err)

	categories, err := uc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "errands", categories[0].Name)
	assert.Equal(t, "home", categories[1].Name)
}
