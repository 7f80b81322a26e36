package repository

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create fails with ErrUsernameTaken or ErrEmailTaken on duplicates.
	Create(ctx context.Context, user *domain.User) error
}
