// Package models defines the client-side identity and credential types of
// an authenticated session, and the AuthState sum type built from them.
package models
