package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/moneytransfer/src/internal/commons"
)

type KeyValueStore struct {
	db *sql.DB
}

func NewKeyValueStore(db *sql.DB) *KeyValueStore {
	return &KeyValueStore{db: db}
}

func (r *KeyValueStore) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT state_value FROM client_state WHERE state_key = $1`

	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", commons.ErrRecordNotFound
		}
		return "", fmt.Errorf("get client state %q: %w", key, err)
	}

	return value, nil
}

func (r *KeyValueStore) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO client_state (state_key, state_value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (state_key) DO UPDATE
SET state_value = EXCLUDED.state_value,
	updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set client state %q: %w", key, err)
	}

	return nil
}

func (r *KeyValueStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM client_state WHERE state_key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete client state %q: %w", key, err)
	}

	return nil
}
