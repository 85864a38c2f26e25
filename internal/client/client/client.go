package client

import (
	"context"

	"github.com/dmitrijs2005/orbit/internal/client/models"
)

// Provider names accepted by the backend.
const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// ExchangeRequest is the one-time authorization code handed back by the
// identity provider.
type ExchangeRequest struct {
	Code        string
	Provider    string
	RedirectURI string
	State       string
}

// AuthResult is the normalized outcome of a code exchange or a refresh.
// IsNewUser is nil for refresh responses.
type AuthResult struct {
	User      models.User
	Session   models.Session
	IsNewUser *bool
}

// AuthAPI is the backend contract used by the session core.
type AuthAPI interface {
	ExchangeCode(ctx context.Context, req ExchangeRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, accessToken string) (*models.User, error)
	AuthorizeURL(ctx context.Context, provider, redirectURI, state string) (string, error)
}
