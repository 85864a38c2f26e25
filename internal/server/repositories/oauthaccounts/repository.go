// Package oauthaccounts stores provider identities linked to users.
package oauthaccounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/orbit/internal/server/models"
)

// Tokens are the provider tokens kept on an account row.
type Tokens struct {
	AccessToken  *string
	RefreshToken *string
	IDToken      *string
	ExpiresAt    *time.Time
}

type Repository interface {
	// FindByProvider returns common.ErrorNotFound when the identity is unknown.
	FindByProvider(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error)
	Create(ctx context.Context, account *models.OAuthAccount) error
	UpdateTokens(ctx context.Context, id string, tokens Tokens) error
	CountByUser(ctx context.Context, userID string) (int, error)
	// DeleteByProvider returns the number of removed rows.
	DeleteByProvider(ctx context.Context, userID, provider string) (int64, error)
}
