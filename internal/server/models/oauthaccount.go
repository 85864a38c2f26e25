package models

import "time"

// OAuthAccount links a provider identity to a user and keeps the most
// recent provider tokens.
type OAuthAccount struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	AccessToken       *string
	RefreshToken      *string
	IDToken           *string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
