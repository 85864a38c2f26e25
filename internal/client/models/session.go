package models

import "time"

// Session is the credential pair issued by the server.
//
// ExpiresAt is an absolute time in milliseconds since the Unix epoch and
// applies to the access token only. The refresh token is single-use: the
// server invalidates it on use and issues a new pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Complete reports whether both tokens are present.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Valid reports whether s is complete and its access token has not expired
// at now. Expiry is strict: ExpiresAt equal to now is expired.
func (s Session) Valid(now time.Time) bool {
	return s.Complete() && s.ExpiresAt > now.UnixMilli()
}

// Expiry returns ExpiresAt as a time.Time.
func (s Session) Expiry() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}
