package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Valid(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name string
		s    Session
		want bool
	}{
		{"future expiry", Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: now.UnixMilli() + 1}, true},
		{"expiry equals now", Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: now.UnixMilli()}, false},
		{"past expiry", Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: now.UnixMilli() - 1}, false},
		{"missing access token", Session{RefreshToken: "r", ExpiresAt: now.UnixMilli() + 1000}, false},
		{"missing refresh token", Session{AccessToken: "a", ExpiresAt: now.UnixMilli() + 1000}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Valid(now))
		})
	}
}

func TestAuthState_IsAuthenticatedFollowsVariant(t *testing.T) {
	assert.False(t, IsAuthenticated(LoggedOut{}))
	assert.False(t, IsAuthenticated(nil))

	in := LoggedIn{User: User{ID: "u1"}, Session: Session{AccessToken: "a"}}
	assert.True(t, IsAuthenticated(in))

	u, ok := UserOf(in)
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	_, ok = SessionOf(LoggedOut{})
	assert.False(t, ok)
}

func TestUser_JSONShape(t *testing.T) {
	u := User{ID: "u1", Email: StringPtr("a@b.c"), ProfileExists: true}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","email":"a@b.c","name":null,"picture":null,"profileExists":true}`, string(b))
}

func TestSession_JSONShape(t *testing.T) {
	b, err := json.Marshal(Session{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a1","refresh_token":"r1","expires_at":42}`, string(b))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ann", User{ID: "1", Name: StringPtr("Ann"), Email: StringPtr("a@x")}.DisplayName())
	assert.Equal(t, "a@x", User{ID: "1", Email: StringPtr("a@x")}.DisplayName())
	assert.Equal(t, "1", User{ID: "1", Name: StringPtr("")}.DisplayName())
}
