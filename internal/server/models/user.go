// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account that one or more provider identities sign in to.
type User struct {
	ID            string
	Email         *string
	Name          *string
	Picture       *string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
