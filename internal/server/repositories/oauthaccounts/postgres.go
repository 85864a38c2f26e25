package oauthaccounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/dbx"
	"github.com/dmitrijs2005/orbit/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByProvider(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {

	query :=
		`SELECT id, user_id, provider, provider_account_id, created_at, updated_at
		 FROM oauth_accounts
		 WHERE provider = $1 AND provider_account_id = $2
		 `

	a := &models.OAuthAccount{}
	err := r.db.QueryRowContext(ctx, query, provider, providerAccountID).
		Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.OAuthAccount) error {

	query :=
		`INSERT INTO oauth_accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, id_token, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.Provider, a.ProviderAccountID, a.AccessToken, a.RefreshToken, a.IDToken, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateTokens(ctx context.Context, id string, t Tokens) error {

	query :=
		`UPDATE oauth_accounts
		 SET access_token = $2, refresh_token = $3, id_token = $4, expires_at = $5, updated_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, t.AccessToken, t.RefreshToken, t.IDToken, t.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM oauth_accounts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteByProvider(ctx context.Context, userID, provider string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM oauth_accounts WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
