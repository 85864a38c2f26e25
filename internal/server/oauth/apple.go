package oauth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	AppleIssuer   = "https://appleid.apple.com"
	appleKeysURL  = "https://appleid.apple.com/auth/keys"
	appleAuthURL  = "https://appleid.apple.com/auth/authorize"
	appleTokenURL = "https://appleid.apple.com/auth/token"

	appleSecretTTL = time.Hour
)

type AppleConfig struct {
	ClientID   string
	TeamID     string
	KeyID      string
	PrivateKey *ecdsa.PrivateKey

	// Endpoint, Issuer and KeySet default to Apple's.
	Endpoint   oauth2.Endpoint
	Issuer     string
	KeySet     oidc.KeySet
	HTTPClient *http.Client
	Now        func() time.Time
}

type Apple struct {
	conf     oauth2.Config
	teamID   string
	keyID    string
	key      *ecdsa.PrivateKey
	verifier *oidc.IDTokenVerifier
	client   *http.Client
	now      func() time.Time
}

func NewApple(ctx context.Context, c AppleConfig) *Apple {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		ep = oauth2.Endpoint{AuthURL: appleAuthURL, TokenURL: appleTokenURL, AuthStyle: oauth2.AuthStyleInParams}
	}
	issuer := c.Issuer
	if issuer == "" {
		issuer = AppleIssuer
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	keys := c.KeySet
	if keys == nil {
		keys = oidc.NewRemoteKeySet(withClient(ctx, c.HTTPClient), appleKeysURL)
	}

	return &Apple{
		conf: oauth2.Config{
			ClientID: c.ClientID,
			Endpoint: ep,
			Scopes:   []string{"email"},
		},
		teamID:   c.TeamID,
		keyID:    c.KeyID,
		key:      c.PrivateKey,
		verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: c.ClientID, Now: now}),
		client:   c.HTTPClient,
		now:      now,
	}
}

func (a *Apple) Name() string { return ProviderApple }

func (a *Apple) AuthCodeURL(redirectURI, state string) string {
	conf := a.conf
	conf.RedirectURL = redirectURI
	return conf.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
}

func (a *Apple) Exchange(ctx context.Context, code, redirectURI string) (*Identity, error) {
	if a.key == nil {
		return nil, fmt.Errorf("%w: apple signing key not configured", ErrExchange)
	}
	secret, err := ClientSecret(a.teamID, a.conf.ClientID, a.keyID, a.key, a.now())
	if err != nil {
		return nil, fmt.Errorf("%w: apple client secret: %v", ErrExchange, err)
	}

	conf := a.conf
	conf.ClientSecret = secret
	conf.RedirectURL = redirectURI

	tok, err := conf.Exchange(withClient(ctx, a.client), code)
	if err != nil {
		return nil, fmt.Errorf("%w: apple token exchange: %v", ErrExchange, err)
	}

	tokens := tokensFrom(tok)
	if tokens.IDToken == "" {
		return nil, fmt.Errorf("%w: apple response has no id_token", ErrExchange)
	}

	idt, err := a.verifier.Verify(ctx, tokens.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: apple id_token: %v", ErrExchange, err)
	}

	var claims appleClaims
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: apple id_token claims: %v", ErrExchange, err)
	}

	return &Identity{Tokens: tokens, User: claims.userInfo()}, nil
}

type appleClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// userInfo maps the id_token claims. Apple only hands out verified
// addresses. The id_token carries neither name nor picture, so both stay
// unset and the user fills them in during profile setup.
func (c appleClaims) userInfo() UserInfo {
	return UserInfo{ID: c.Sub, Email: strPtr(c.Email), EmailVerified: c.Email != ""}
}

// ClientSecret builds the ES256-signed JWT Apple expects as client_secret.
func ClientSecret(teamID, clientID, keyID string, key *ecdsa.PrivateKey, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Issuer:    teamID,
		Subject:   clientID,
		Audience:  jwt.ClaimStrings{AppleIssuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appleSecretTTL)),
	})
	token.Header["kid"] = keyID
	return token.SignedString(key)
}

// LoadPrivateKey reads a PEM-encoded (.p8) EC private key.
func LoadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseECPrivateKeyFromPEM(data)
}
