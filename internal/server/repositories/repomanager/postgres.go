package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/orbit/internal/dbx"
	"github.com/dmitrijs2005/orbit/internal/server/migrations"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/activity"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/oauthaccounts"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

type PostgresRepositoryManager struct {
	// refresh tokens go to Redis instead of Postgres when set
	redis redis.Cmdable
}

type Option func(*PostgresRepositoryManager)

// WithRedisRefreshTokens stores refresh tokens in rdb. Those tokens do not
// take part in SQL transactions.
func WithRedisRefreshTokens(rdb redis.Cmdable) Option {
	return func(m *PostgresRepositoryManager) { m.redis = rdb }
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) OAuthAccounts(db dbx.DBTX) oauthaccounts.Repository {
	return oauthaccounts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Activity(db dbx.DBTX) activity.Repository {
	return activity.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	if m.redis != nil {
		return refreshtokens.NewRedisRepository(m.redis)
	}
	return refreshtokens.NewPostgresRepository(db)
}

var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

func NewPostgresRepositoryManager(opts ...Option) *PostgresRepositoryManager {
	m := &PostgresRepositoryManager{}
	for _, o := range opts {
		o(m)
	}
	return m
}
