package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes back the marketplace search filter on listing name and
// description.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for listing name + description full-text search
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_listings_search_gin
		ON listings USING gin(to_tsvector('english', name || ' ' || COALESCE(description, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create listings search GIN index: %w", err)
	}

	// GIN index over the tags array for capability lookups
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_listings_tags_gin
		ON listings USING gin(tags)`)
	if err != nil {
		return fmt.Errorf("failed to create listings tags GIN index: %w", err)
	}

	return nil
}

// CreatePartialUniqueIndexes creates PostgreSQL partial unique indexes that
// Ent/Atlas cannot express. These must match the constraints in
// 0001_init.up.sql.
func CreatePartialUniqueIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// One job per (tenant, idempotency key); rows without a key are exempt.
	_, err := db.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS job_tenant_id_idempotency_key
		ON jobs (tenant_id, idempotency_key)
		WHERE idempotency_key IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("failed to create job idempotency index: %w", err)
	}

	return nil
}
