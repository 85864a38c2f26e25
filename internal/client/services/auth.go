// Package services contains application services for the Orbit client.
// This file defines the authentication service: code exchange login,
// logout, token access with transparent refresh, and profile validation.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/client/client"
	"github.com/dmitrijs2005/orbit/internal/client/models"
	"github.com/dmitrijs2005/orbit/internal/client/session"
	"github.com/dmitrijs2005/orbit/internal/logging"
)

// ErrNotAuthenticated is returned when no usable session exists and a
// refresh could not produce one.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange a provider authorization code and store the session.
//   - Logout: best-effort server invalidation, then always clear local auth.
//   - AccessToken: a valid access token, refreshing once if it expired.
//   - Refresh: force a token rotation.
//   - Profile: fetch the current user and update profile existence.
//   - CompleteProfile: consume the one-shot new-user flag.
//   - AuthorizeURL: the provider consent URL to open in a browser.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, req client.ExchangeRequest) (*models.User, error)
	Logout(ctx context.Context) error
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Profile(ctx context.Context) (*models.User, error)
	CompleteProfile(ctx context.Context) (*models.User, error)
	AuthorizeURL(ctx context.Context, provider, redirectURI, state string) (string, error)
}

// authService is the concrete AuthService backed by the backend API and
// the session store.
type authService struct {
	api   client.AuthAPI
	store *session.Store
	log   logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and store.
func NewAuthService(api client.AuthAPI, store *session.Store, log logging.Logger) AuthService {
	return &authService{api: api, store: store, log: log.With("module", "auth")}
}

// Login validates req before touching any state, then exchanges the code.
// Exchange failures are recorded in the store's error and leave the
// previous session untouched.
func (a *authService) Login(ctx context.Context, req client.ExchangeRequest) (*models.User, error) {
	if err := client.ValidateExchange(req); err != nil {
		return nil, err
	}

	a.store.SetLoading(true)

	res, err := a.api.ExchangeCode(ctx, req)
	if err != nil {
		a.log.Warn(ctx, "code exchange failed", "provider", req.Provider, "error", err)
		a.store.SetError(fmt.Sprintf("Login failed: %v", err))
		return nil, err
	}

	if err := a.store.SetUserAndSession(ctx, res.User, res.Session, res.IsNewUser); err != nil {
		a.store.SetError(fmt.Sprintf("Login failed: %v", err))
		return nil, err
	}

	a.log.Info(ctx, "logged in", "provider", req.Provider, "user_id", res.User.ID)
	return &res.User, nil
}

// Logout never fails locally: the server call is best-effort.
func (a *authService) Logout(ctx context.Context) error {
	if rt, ok := a.store.RefreshToken(); ok {
		if err := a.api.Logout(ctx, rt); err != nil {
			a.log.Warn(ctx, "server logout failed", "error", err)
		}
	}
	a.store.ClearAuth(ctx)
	return nil
}

func (a *authService) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := a.store.AccessToken(); ok {
		return tok, nil
	}
	return a.Refresh(ctx)
}

func (a *authService) Refresh(ctx context.Context) (string, error) {
	tok, ok := a.store.RefreshAccessToken(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", ErrNotAuthenticated
	}
	return tok, nil
}

// Profile calls /auth/me, retrying once after a refresh when the access
// token is rejected.
func (a *authService) Profile(ctx context.Context) (*models.User, error) {
	tok, err := a.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	u, err := a.api.Me(ctx, tok)
	if errors.Is(err, client.ErrUnauthorized) {
		if tok, err = a.Refresh(ctx); err != nil {
			return nil, err
		}
		u, err = a.api.Me(ctx, tok)
	}
	if err != nil {
		return nil, err
	}

	a.updateUser(ctx, *u)
	return u, nil
}

// updateUser folds a fresh user record into the store, keeping the current
// session and new-user flag.
func (a *authService) updateUser(ctx context.Context, u models.User) {
	st := a.store.State()
	sess, ok := models.SessionOf(st.Auth)
	if !ok {
		return
	}
	if err := a.store.SetUserAndSession(ctx, u, sess, st.IsNewUser); err != nil {
		a.log.Warn(ctx, "failed to update user", "error", err)
	}
}

// CompleteProfile clears the new-user flag and re-reads the user so the
// profile-existence flag reflects the server.
func (a *authService) CompleteProfile(ctx context.Context) (*models.User, error) {
	if !a.store.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	a.store.ClearNewUser(ctx)
	return a.Profile(ctx)
}

func (a *authService) AuthorizeURL(ctx context.Context, provider, redirectURI, state string) (string, error) {
	return a.api.AuthorizeURL(ctx, provider, redirectURI, state)
}
