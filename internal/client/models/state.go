package models

// AuthState is either LoggedOut or LoggedIn. A partial state (a user without
// a session, or the reverse) cannot be represented.
type AuthState interface {
	authState()
}

// LoggedOut is the empty initial state.
type LoggedOut struct{}

// LoggedIn holds the authenticated user and their session.
type LoggedIn struct {
	User    User
	Session Session
}

func (LoggedOut) authState() {}
func (LoggedIn) authState()  {}

// IsAuthenticated is derived from the variant and cannot be set on its own.
func IsAuthenticated(s AuthState) bool {
	_, ok := s.(LoggedIn)
	return ok
}

// UserOf returns the user of s, if any.
func UserOf(s AuthState) (User, bool) {
	if in, ok := s.(LoggedIn); ok {
		return in.User, true
	}
	return User{}, false
}

// SessionOf returns the session of s, if any.
func SessionOf(s AuthState) (Session, bool) {
	if in, ok := s.(LoggedIn); ok {
		return in.Session, true
	}
	return Session{}, false
}
