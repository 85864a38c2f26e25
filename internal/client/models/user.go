package models

// User is the identity record returned by the server after authentication
// or refresh. The client never mutates it directly.
type User struct {
	ID            string  `json:"id"`
	Email         *string `json:"email"`
	Name          *string `json:"name"`
	Picture       *string `json:"picture"`
	ProfileExists bool    `json:"profileExists"`
}

// DisplayName returns the best human-readable label for u.
func (u User) DisplayName() string {
	switch {
	case u.Name != nil && *u.Name != "":
		return *u.Name
	case u.Email != nil && *u.Email != "":
		return *u.Email
	default:
		return u.ID
	}
}

// StringPtr is a small helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}
