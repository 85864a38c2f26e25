// Package profiles answers whether a user has completed profile setup.
package profiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/dbx"
)

type Repository interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM profile WHERE user_id = $1)`, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
