package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

type Google struct {
	conf        oauth2.Config
	userInfoURL string
	client      *http.Client
}

func NewGoogle(c GoogleConfig) *Google {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		ep = google.Endpoint
	}
	u := c.UserInfoURL
	if u == "" {
		u = googleUserInfoURL
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Google{
		conf: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     ep,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: u,
		client:      client,
	}
}

func (g *Google) Name() string { return ProviderGoogle }

func (g *Google) AuthCodeURL(redirectURI, state string) string {
	conf := g.conf
	conf.RedirectURL = redirectURI
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (g *Google) Exchange(ctx context.Context, code, redirectURI string) (*Identity, error) {
	conf := g.conf
	conf.RedirectURL = redirectURI

	tok, err := conf.Exchange(withClient(ctx, g.client), code)
	if err != nil {
		return nil, fmt.Errorf("%w: google token exchange: %v", ErrExchange, err)
	}

	u, err := g.fetchUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google user info: %v", ErrExchange, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: google user info has no id", ErrExchange)
	}

	return &Identity{
		Tokens: tokensFrom(tok),
		User: UserInfo{
			ID:            u.ID,
			Email:         strPtr(u.Email),
			EmailVerified: u.VerifiedEmail,
			Name:          strPtr(u.Name),
			Picture:       strPtr(u.Picture),
		},
	}, nil
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *Google) fetchUser(ctx context.Context, accessToken string) (*googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var u googleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
