package postgres

import (
	"context"
	"fmt"
)

// Statements are idempotent so every mode can run them at startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id         BIGSERIAL PRIMARY KEY,
		number     TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'processing',
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		address    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_meta (
		order_id   BIGINT NOT NULL,
		meta_key   TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (order_id, meta_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_meta_lookup ON order_meta (meta_key, meta_value)`,
	`CREATE TABLE IF NOT EXISTS drivers (
		id     BIGSERIAL PRIMARY KEY,
		name   TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT true
	)`,
}

// EnsureSchema creates the adapter's tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
