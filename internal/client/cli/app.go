package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/orbit/internal/client/client"
	"github.com/dmitrijs2005/orbit/internal/client/config"
	"github.com/dmitrijs2005/orbit/internal/client/gate"
	"github.com/dmitrijs2005/orbit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/orbit/internal/client/services"
	"github.com/dmitrijs2005/orbit/internal/client/session"
	"github.com/dmitrijs2005/orbit/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	store       *session.Store
	nav         *gate.Navigator
	db          *sql.DB
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	// pending consent state per provider, set by "url" and sent with "login"
	states map[string]string
}

// NewApp opens the local database, restores any persisted session and
// starts the route gate.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	var repo metadata.Repository = metadata.NewSQLiteRepository(db)
	if c.StorageSecret != "" {
		repo, err = metadata.NewEncryptedRepository(ctx, repo, []byte(c.StorageSecret))
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open encrypted storage: %w", err)
		}
	}

	api := client.NewHTTPClient(c.APIURL, c.HTTPTimeout, client.WithHTTPLogger(log))
	store := session.NewStore(repo, session.WithRefresher(api), session.WithLogger(log))

	a := &App{
		config:      c,
		authService: services.NewAuthService(api, store, log),
		store:       store,
		db:          db,
		log:         log,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		states:      map[string]string{},
	}

	if err := store.Hydrate(ctx); err != nil {
		log.Warn(ctx, "local session unavailable, starting logged out", "error", err)
	}

	a.nav = gate.NewNavigator(store, gate.RouteRoot, a.onNavigate, log)
	return a, nil
}

// Run starts the REPL and releases resources once it returns.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close stops the gate and closes the local database.
func (a *App) Close() {
	if a.nav != nil {
		a.nav.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error(context.Background(), "error closing database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.store != nil && a.store.IsAuthenticated()
}

func (a *App) redirectURI(provider string) string {
	return a.config.RedirectURI + "/" + provider
}
