package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/client/client"
	"github.com/dmitrijs2005/orbit/internal/client/models"
	"github.com/dmitrijs2005/orbit/internal/client/services"
	"github.com/dmitrijs2005/orbit/internal/common"
)

// Test seams for interactive input.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
)

var errUnsupportedProvider = errors.New("unsupported provider")

// AuthorizeURL prints the provider consent URL and remembers the state
// value so the following login can send it back.
func (a *App) AuthorizeURL(ctx context.Context, provider string) error {
	if !client.SupportedProvider(provider) {
		printlnFn("Unsupported provider:", provider)
		return errUnsupportedProvider
	}

	state, err := common.MakeRandHexString(16)
	if err != nil {
		a.log.Error(ctx, "error generating state", "error", err)
		return err
	}

	u, err := a.authService.AuthorizeURL(ctx, provider, a.redirectURI(provider), state)
	if err != nil {
		printlnFn("Could not get the consent URL:", err)
		return err
	}

	a.states[provider] = state
	printlnFn("Open this URL in a browser and copy the code parameter from the redirect:")
	printlnFn(u)
	return nil
}

// Login asks for the authorization code without echo and exchanges it.
func (a *App) Login(ctx context.Context, provider string) error {
	if provider == "" {
		p, err := getSimpleText(a.reader, "Provider (google|apple)", a.out)
		if err != nil {
			a.log.Error(ctx, "error reading provider", "error", err)
			return err
		}
		provider = p
	}
	if !client.SupportedProvider(provider) {
		printlnFn("Unsupported provider:", provider)
		return errUnsupportedProvider
	}

	code, err := getSecret(a.out, "Authorization code")
	if err != nil {
		a.log.Error(ctx, "error reading code", "error", err)
		return err
	}

	u, err := a.authService.Login(ctx, client.ExchangeRequest{
		Code:        code,
		Provider:    provider,
		RedirectURI: a.redirectURI(provider),
		State:       a.states[provider],
	})
	if err != nil {
		printlnFn("Login unsuccessful:", err)
		return err
	}

	delete(a.states, provider)
	printlnFn("Login successful:", u.DisplayName())
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.store.State()

	if u, ok := models.UserOf(st.Auth); ok {
		printlnFn("User:", u.DisplayName(), "("+u.ID+")")
	} else {
		printlnFn("Not logged in")
	}
	if s, ok := models.SessionOf(st.Auth); ok {
		printlnFn("Session:", describeSession(s))
	}
	if st.IsNewUser != nil && *st.IsNewUser {
		printlnFn("Profile setup pending")
	}
	if st.Error != "" {
		printlnFn("Last error:", st.Error)
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.authService.Profile(ctx)
	if err != nil {
		a.reportAuthError(err)
		return err
	}

	printlnFn("ID:", u.ID)
	if u.Email != nil {
		printlnFn("Email:", *u.Email)
	}
	if u.Name != nil {
		printlnFn("Name:", *u.Name)
	}
	printlnFn("Profile exists:", u.ProfileExists)
	return nil
}

func (a *App) Token(ctx context.Context) error {
	tok, err := a.authService.AccessToken(ctx)
	if err != nil {
		a.reportAuthError(err)
		return err
	}
	printlnFn(tok)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if _, err := a.authService.Refresh(ctx); err != nil {
		a.reportAuthError(err)
		return err
	}
	if s, ok := a.store.Session(); ok {
		printlnFn("Session refreshed,", describeSession(s))
	}
	return nil
}

func (a *App) ProfileDone(ctx context.Context) error {
	if _, err := a.authService.CompleteProfile(ctx); err != nil {
		a.reportAuthError(err)
		return err
	}
	printlnFn("Profile setup complete")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

func (a *App) reportAuthError(err error) {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		printlnFn("Not logged in")
	case errors.Is(err, client.ErrUnavailable):
		printlnFn("Server unavailable, try again later")
	default:
		printlnFn(fmt.Sprintf("error: %v", err))
	}
}
