// Package oauth exchanges provider authorization codes for a normalized
// identity. Google and Apple are supported.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// ErrExchange wraps every failure to turn a code into an identity.
var ErrExchange = errors.New("oauth exchange failed")

// Tokens are the provider-issued tokens, kept on the linked account.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// UserInfo is the provider profile normalized across providers.
type UserInfo struct {
	ID            string
	Email         *string
	EmailVerified bool
	Name          *string
	Picture       *string
}

type Identity struct {
	Tokens Tokens
	User   UserInfo
}

type Provider interface {
	Name() string
	AuthCodeURL(redirectURI, state string) string
	Exchange(ctx context.Context, code, redirectURI string) (*Identity, error)
}

func tokensFrom(tok *oauth2.Token) Tokens {
	t := Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		t.IDToken = id
	}
	return t
}

func withClient(ctx context.Context, c *http.Client) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
