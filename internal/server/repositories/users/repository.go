// Package users declares the server-side repository contract for user
// accounts and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/orbit/internal/server/models"
)

// Repository defines operations over the users table. Lookups return
// common.ErrorNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateInfo overwrites the non-nil fields only.
	UpdateInfo(ctx context.Context, id string, email, name, picture *string) error
}
