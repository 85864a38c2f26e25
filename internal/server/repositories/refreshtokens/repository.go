// Package refreshtokens declares the server-side repository contract for
// refresh tokens and provides PostgreSQL and Redis implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/orbit/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// It returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Consume atomically removes the token and returns what it held, so a
	// token can be redeemed at most once. Absent tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) error
}
