package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/dbx"
	"github.com/dmitrijs2005/orbit/internal/logging"
	"github.com/dmitrijs2005/orbit/internal/server/config"
	"github.com/dmitrijs2005/orbit/internal/server/models"
	"github.com/dmitrijs2005/orbit/internal/server/oauth"
	activityrepo "github.com/dmitrijs2005/orbit/internal/server/repositories/activity"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/oauthaccounts"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/orbit/internal/server/repositories/users"
)

// memStore backs every fake repository. Writes are not rolled back with
// the sqlmock transaction.
type memStore struct {
	users      map[string]*models.User
	accounts   map[string]*models.OAuthAccount
	profiles   map[string]bool
	tokens     map[string]*models.RefreshToken
	activities []*models.Activity

	failUsers error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		accounts: map[string]*models.OAuthAccount{},
		profiles: map[string]bool{},
		tokens:   map[string]*models.RefreshToken{},
	}
}

func (m *memStore) events() []string {
	out := make([]string, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a.EventType)
	}
	return out
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) Create(_ context.Context, u *models.User) error {
	if f.failUsers != nil {
		return f.failUsers
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.failUsers != nil {
		return nil, f.failUsers
	}
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.failUsers != nil {
		return nil, f.failUsers
	}
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) UpdateInfo(_ context.Context, id string, email, name, picture *string) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	if email != nil {
		u.Email = email
	}
	if name != nil {
		u.Name = name
	}
	if picture != nil {
		u.Picture = picture
	}
	return nil
}

type fakeAccounts struct{ *memStore }

func (f fakeAccounts) FindByProvider(_ context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
	for _, a := range f.accounts {
		if a.Provider == provider && a.ProviderAccountID == providerAccountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeAccounts) Create(_ context.Context, a *models.OAuthAccount) error {
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f fakeAccounts) UpdateTokens(_ context.Context, id string, t oauthaccounts.Tokens) error {
	a, ok := f.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.AccessToken, a.RefreshToken, a.IDToken, a.ExpiresAt = t.AccessToken, t.RefreshToken, t.IDToken, t.ExpiresAt
	return nil
}

func (f fakeAccounts) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, a := range f.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeAccounts) DeleteByProvider(_ context.Context, userID, provider string) (int64, error) {
	var n int64
	for id, a := range f.accounts {
		if a.UserID == userID && a.Provider == provider {
			delete(f.accounts, id)
			n++
		}
	}
	return n, nil
}

type fakeProfiles struct{ *memStore }

func (f fakeProfiles) Exists(_ context.Context, userID string) (bool, error) {
	return f.profiles[userID], nil
}

type fakeActivity struct{ m *memStore }

func (f fakeActivity) Create(_ context.Context, a *models.Activity) error {
	f.m.activities = append(f.m.activities, a)
	return nil
}

type fakeTokens struct{ *memStore }

func (f fakeTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f fakeTokens) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, err := f.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	delete(f.tokens, token)
	return rt, nil
}

func (f fakeTokens) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

type fakeRepoManager struct{ m *memStore }

func (r fakeRepoManager) RunMigrations(context.Context, *sql.DB) error      { return nil }
func (r fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository              { return fakeUsers{r.m} }
func (r fakeRepoManager) OAuthAccounts(dbx.DBTX) oauthaccounts.Repository  { return fakeAccounts{r.m} }
func (r fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository            { return fakeProfiles{r.m} }
func (r fakeRepoManager) Activity(dbx.DBTX) activityrepo.Repository        { return fakeActivity{r.m} }
func (r fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return fakeTokens{r.m} }

type fakeProvider struct {
	name     string
	identity *oauth.Identity
	err      error
	codes    []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(redirectURI, state string) string {
	return fmt.Sprintf("https://idp.example/%s?redirect_uri=%s&state=%s", p.name, redirectURI, state)
}

func (p *fakeProvider) Exchange(_ context.Context, code, _ string) (*oauth.Identity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

func strp(s string) *string { return &s }

type harness struct {
	svc    *AuthService
	mock   sqlmock.Sqlmock
	store  *memStore
	google *fakeProvider
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := newMemStore()
	google := &fakeProvider{name: oauth.ProviderGoogle}
	cfg := &config.Config{
		JWTSecret:       "k",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}

	svc := NewAuthService(db, fakeRepoManager{store}, cfg, logging.NewNop(), google, &fakeProvider{name: oauth.ProviderApple})
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	return &harness{svc: svc, mock: mock, store: store, google: google}
}
