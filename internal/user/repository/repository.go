package repository

import (
	"context"

	"hattbooks/backend/internal/user/domain"
)

// Repository defines persistence for users. Lookups return (nil, nil) for
// missing rows; errors are database failures only. Email and username lookups
// expect the caller to have lowercased the argument.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}
