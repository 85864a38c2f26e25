// Package activity records user sign-in events.
package activity

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/dbx"
	"github.com/dmitrijs2005/orbit/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Activity) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Activity) error {

	query :=
		`INSERT INTO user_activity (id, user_id, event_type, metadata)
		 VALUES ($1, $2, $3, $4)
		 `

	var meta any
	if len(a.Metadata) > 0 {
		meta = []byte(a.Metadata)
	}

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.EventType, meta); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
