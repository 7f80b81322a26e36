package category

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

const MaxNameLength = 50

type UseCase struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

func New(categories repository.CategoryRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{categories: categories, logger: logger}
}

func (uc *UseCase) CreateCategory(ctx context.Context, name string, weight int) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, domain.Invalid("name must be between 1 and 50 characters")
	}
	if !domain.ValidCategoryWeight(weight) {
		return nil, domain.Invalid("weight must be between 1 and 4")
	}

	category := &domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Weight:    weight,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.categories.Create(ctx, category); err != nil {
		uc.logger.Error("create category failed", zap.Error(err))
		return nil, domain.Internal("create category failed", err)
	}
	return category, nil
}

func (uc *UseCase) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	category, err := uc.categories.GetByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		uc.logger.Error("get category failed", zap.Error(err))
		return nil, domain.Internal("get category failed", err)
	}
	return category, nil
}

func (uc *UseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := uc.categories.List(ctx)
	if err != nil {
		uc.logger.Error("list categories failed", zap.Error(err))
		return nil, domain.Internal("list categories failed", err)
	}
	return categories, nil
}
