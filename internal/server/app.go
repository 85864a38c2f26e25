// Package server wires configuration, storage, OAuth providers and the
// HTTP API into a runnable auth server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/logging"
	"github.com/dmitrijs2005/orbit/internal/server/config"
	"github.com/dmitrijs2005/orbit/internal/server/httpapi"
	"github.com/dmitrijs2005/orbit/internal/server/oauth"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/orbit/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const defaultJWTSecret = "secretKey"

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := validate(c); err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	var opts []repomanager.Option
	if c.RefreshStore == config.RefreshStoreRedis {
		ropts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis url: %w", err)
		}
		app.redis = redis.NewClient(ropts)
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		opts = append(opts, repomanager.WithRedisRefreshTokens(app.redis))
	}

	rm := repomanager.NewPostgresRepositoryManager(opts...)
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	providers, err := newProviders(ctx, c)
	if err != nil {
		app.Close()
		return nil, err
	}
	if len(providers) == 0 {
		logger.Warn(ctx, "no OAuth providers configured")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := services.NewAuthService(db, rm, c, logger, providers...)
	app.server = httpapi.NewServer(c.Addr, logger, svc, reg, httpapi.WithHealthCheck(app.healthy))

	return app, nil
}

func validate(c *config.Config) error {
	if c.RefreshStore != config.RefreshStorePostgres && c.RefreshStore != config.RefreshStoreRedis {
		return fmt.Errorf("unknown refresh store %q", c.RefreshStore)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is empty")
	}
	if c.Production && c.JWTSecret == defaultJWTSecret {
		return errors.New("default jwt secret in production")
	}
	return nil
}

// newProviders returns the providers that have a client ID configured.
func newProviders(ctx context.Context, c *config.Config) ([]oauth.Provider, error) {
	var out []oauth.Provider

	if c.GoogleClientID != "" {
		out = append(out, oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
		}))
	}

	if c.AppleClientID != "" {
		ac := oauth.AppleConfig{
			ClientID: c.AppleClientID,
			TeamID:   c.AppleTeamID,
			KeyID:    c.AppleKeyID,
		}
		if c.ApplePrivateKeyPath != "" {
			key, err := oauth.LoadPrivateKey(c.ApplePrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("apple private key: %w", err)
			}
			ac.PrivateKey = key
		}
		out = append(out, oauth.NewApple(ctx, ac))
	}

	return out, nil
}

func (app *App) healthy(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return err
	}
	if app.redis != nil {
		return app.redis.Ping(ctx).Err()
	}
	return nil
}

// Run serves HTTP until ctx is cancelled and releases storage afterwards.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "refresh_store", app.config.RefreshStore)

	return app.server.Run(ctx)
}

func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
