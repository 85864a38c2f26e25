// Package common contains shared constants, sentinel errors and small
// helpers used across Orbit components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound
	// requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RefreshTokenBytes is the amount of random data behind a refresh token.
	RefreshTokenBytes = 32
)
