package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a Postgres-backed CategoryRepository.
func NewCategoryRepository(pool *pgxpool.Pool) repository.CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
	SELECT c.id, c.name, c.weight, c.created_at, COUNT(t.id)
	FROM categories c
	LEFT JOIN tasks t ON t.category_id = c.id
	WHERE c.id = $1
	GROUP BY c.id
	`
	return scanCategory(executorFrom(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	const query = `
	SELECT c.id, c.name, c.weight, c.created_at, COUNT(t.id)
	FROM categories c
	LEFT JOIN tasks t ON t.category_id = c.id
	GROUP BY c.id
	ORDER BY c.name
	`
	rows, err := executorFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if category == nil {
		return domain.ErrInvalidPayload
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO categories (id, name, weight)
	VALUES ($1, $2, $3)
	RETURNING created_at
	`
	return executorFrom(ctx, r.pool).QueryRow(ctx, query,
		category.ID,
		category.Name,
		category.Weight,
	).Scan(&category.CreatedAt)
}

func scanCategory(row scanner) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Weight,
		&category.CreatedAt,
		&category.TaskCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}
