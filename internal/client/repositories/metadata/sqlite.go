package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/dbx"
)

const (
	selectValue = `SELECT value FROM metadata WHERE key = ?`
	upsertValue = `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	deleteValue = `DELETE FROM metadata WHERE key = ?`
)

// SQLiteRepository keeps session values in the metadata table created by
// the client migrations.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	switch err := r.db.QueryRowContext(ctx, selectValue, key).Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read session key %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set stores value under key. A nil value is stored as empty so it reads
// back as present.
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := r.db.ExecContext(ctx, upsertValue, key, value); err != nil {
		return fmt.Errorf("write session key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Zero affected rows means the key was already gone,
// which logout treats as success.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, deleteValue, key); err != nil {
		return fmt.Errorf("delete session key %q: %w", key, err)
	}
	return nil
}
