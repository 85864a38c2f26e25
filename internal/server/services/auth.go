// Package services contains server-side business logic. AuthService turns
// provider authorization codes into Orbit sessions, rotates refresh tokens
// and manages linked sign-in methods.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/dbx"
	"github.com/dmitrijs2005/orbit/internal/logging"
	"github.com/dmitrijs2005/orbit/internal/server/auth"
	"github.com/dmitrijs2005/orbit/internal/server/config"
	"github.com/dmitrijs2005/orbit/internal/server/models"
	"github.com/dmitrijs2005/orbit/internal/server/oauth"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/oauthaccounts"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrLastAuthMethod      = errors.New("cannot unlink the last sign-in method")
	ErrOAuth               = errors.New("oauth error")
)

// Session is the token pair handed to clients.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type AuthResult struct {
	Session       Session
	User          *models.User
	ProfileExists bool
	// IsNewUser is only set by OAuthCallback.
	IsNewUser *bool
}

type Me struct {
	User          *models.User
	ProfileExists bool
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	providers   map[string]oauth.Provider
	jwtSecret   []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	log         logging.Logger

	now   func() time.Time
	newID func() string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, providers ...oauth.Provider) *AuthService {
	s := &AuthService{
		db:          db,
		repomanager: m,
		providers:   make(map[string]oauth.Provider, len(providers)),
		jwtSecret:   []byte(cfg.JWTSecret),
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		log:         log.With("module", "auth"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

func (s *AuthService) provider(name string) (oauth.Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// AuthorizeURL returns the provider consent page URL.
func (s *AuthService) AuthorizeURL(providerName, redirectURI, state string) (string, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(redirectURI, state), nil
}

// OAuthCallback exchanges code with the provider, links or creates the
// user and issues a new session.
func (s *AuthService) OAuthCallback(ctx context.Context, providerName, code, redirectURI string) (*AuthResult, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	identity, err := p.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuth, err)
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*AuthResult, error) {
		user, isNew, err := s.linkAccount(ctx, tx, providerName, identity)
		if err != nil {
			return nil, err
		}

		res, err := s.startSession(ctx, tx, user)
		if err != nil {
			return nil, err
		}
		res.IsNewUser = &isNew

		event := models.EventLogin
		if isNew {
			event = models.EventRegister
		}
		if err := s.recordActivity(ctx, tx, user.ID, event, map[string]string{
			"provider":      providerName,
			"oauth_user_id": identity.User.ID,
		}); err != nil {
			return nil, err
		}

		s.log.Info(ctx, "oauth sign-in", "user_id", user.ID, "provider", providerName, "new_user", isNew)
		return res, nil
	})
}

// linkAccount resolves the identity to a user: a known provider account
// wins, then a user with the same email, otherwise a new user is created.
func (s *AuthService) linkAccount(ctx context.Context, tx dbx.DBTX, providerName string, id *oauth.Identity) (*models.User, bool, error) {
	accounts := s.repomanager.OAuthAccounts(tx)
	users := s.repomanager.Users(tx)
	info := id.User

	acc, err := accounts.FindByProvider(ctx, providerName, info.ID)
	switch {
	case err == nil:
		if err := accounts.UpdateTokens(ctx, acc.ID, accountTokens(id.Tokens)); err != nil {
			return nil, false, fmt.Errorf("error updating account tokens: %w", err)
		}
		if err := users.UpdateInfo(ctx, acc.UserID, info.Email, info.Name, info.Picture); err != nil {
			return nil, false, fmt.Errorf("error updating user: %w", err)
		}
		user, err := users.GetByID(ctx, acc.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("error loading user: %w", err)
		}
		return user, false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, fmt.Errorf("error searching account: %w", err)
	}

	var user *models.User
	if info.Email != nil {
		user, err = users.GetByEmail(ctx, *info.Email)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, false, fmt.Errorf("error searching user: %w", err)
		}
	}

	isNew := false
	if user == nil {
		user = &models.User{
			ID:            s.newID(),
			Email:         info.Email,
			Name:          info.Name,
			Picture:       info.Picture,
			EmailVerified: info.EmailVerified,
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("error creating user: %w", err)
		}
		isNew = true
	}

	t := accountTokens(id.Tokens)
	acc = &models.OAuthAccount{
		ID:                s.newID(),
		UserID:            user.ID,
		Provider:          providerName,
		ProviderAccountID: info.ID,
		AccessToken:       t.AccessToken,
		RefreshToken:      t.RefreshToken,
		IDToken:           t.IDToken,
		ExpiresAt:         t.ExpiresAt,
	}
	if err := accounts.Create(ctx, acc); err != nil {
		return nil, false, fmt.Errorf("error linking account: %w", err)
	}

	return user, isNew, nil
}

func accountTokens(t oauth.Tokens) oauthaccounts.Tokens {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	out := oauthaccounts.Tokens{
		AccessToken:  opt(t.AccessToken),
		RefreshToken: opt(t.RefreshToken),
		IDToken:      opt(t.IDToken),
	}
	if !t.Expiry.IsZero() {
		exp := t.Expiry
		out.ExpiresAt = &exp
	}
	return out
}

// Refresh redeems a refresh token exactly once and issues a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, common.ErrRefreshTokenInvalid
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*AuthResult, error) {
		rt, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrRefreshTokenInvalid
			}
			return nil, fmt.Errorf("error consuming refresh token: %w", err)
		}

		if !rt.Expires.IsZero() && !s.now().Before(rt.Expires) {
			return nil, common.ErrRefreshTokenExpired
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, rt.UserID)
		if err != nil {
			return nil, err
		}

		return s.startSession(ctx, tx, user)
	})
}

func (s *AuthService) startSession(ctx context.Context, tx dbx.DBTX, user *models.User) (*AuthResult, error) {
	var email string
	if user.Email != nil {
		email = *user.Email
	}

	access, exp, err := auth.GenerateToken(user.ID, email, s.jwtSecret, s.now(), s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refresh, err := common.MakeRandHexString(common.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	exists, err := s.repomanager.Profiles(tx).Exists(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking profile: %w", err)
	}

	return &AuthResult{
		Session:       Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp},
		User:          user,
		ProfileExists: exists,
	}, nil
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rt, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		return s.recordActivity(ctx, tx, rt.UserID, models.EventLogout, nil)
	})
}

func (s *AuthService) Me(ctx context.Context, userID string) (*Me, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	exists, err := s.repomanager.Profiles(s.db).Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking profile: %w", err)
	}
	return &Me{User: user, ProfileExists: exists}, nil
}

// Unlink removes the user's account for providerName, refusing to remove
// the last one. A provider that is not linked yields common.ErrorNotFound.
func (s *AuthService) Unlink(ctx context.Context, userID, providerName string) error {
	if providerName != oauth.ProviderGoogle && providerName != oauth.ProviderApple {
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, providerName)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.OAuthAccounts(tx)

		n, err := accounts.CountByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("error counting accounts: %w", err)
		}
		if n <= 1 {
			return ErrLastAuthMethod
		}

		deleted, err := accounts.DeleteByProvider(ctx, userID, providerName)
		if err != nil {
			return fmt.Errorf("error unlinking account: %w", err)
		}
		if deleted == 0 {
			return common.ErrorNotFound
		}

		return s.recordActivity(ctx, tx, userID, models.EventUnlink, map[string]string{"provider": providerName})
	})
}

// VerifyAccessToken returns the user ID carried by a valid access token.
func (s *AuthService) VerifyAccessToken(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *AuthService) recordActivity(ctx context.Context, tx dbx.DBTX, userID, event string, meta map[string]string) error {
	a := &models.Activity{ID: s.newID(), UserID: userID, EventType: event}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		a.Metadata = raw
	}
	if err := s.repomanager.Activity(tx).Create(ctx, a); err != nil {
		return fmt.Errorf("error recording activity: %w", err)
	}
	return nil
}
