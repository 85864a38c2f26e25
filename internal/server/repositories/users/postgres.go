package users

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

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {

	query :=
		`INSERT INTO users (id, email, name, picture, email_verified)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.Picture, user.EmailVerified).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const selectUser = `SELECT id, email, name, picture, email_verified, created_at, updated_at FROM users`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var (
		u                    models.User
		email, name, picture sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &email, &name, &picture, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Email = nullable(email)
	u.Name = nullable(name)
	u.Picture = nullable(picture)
	return &u, nil
}

func (r *PostgresRepository) UpdateInfo(ctx context.Context, id string, email, name, picture *string) error {

	query :=
		`UPDATE users
		 SET email = COALESCE($2, email), name = COALESCE($3, name), picture = COALESCE($4, picture), updated_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, email, name, picture); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
