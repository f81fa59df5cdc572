package domain

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, user *AdminUser) error
	Save(ctx context.Context, user *AdminUser) error
	FindByUsername(ctx context.Context, username string) (*AdminUser, error)
}

type Service interface {
	// Authenticate checks a username and password pair.
	Authenticate(ctx context.Context, username, password string) (AdminUser, error)
	// Upsert creates the user or resets its password and role.
	Upsert(ctx context.Context, username, password, role string) (AdminUser, error)
}
