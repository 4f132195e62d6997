package postgres

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Migrate creates the schema if it does not exist yet. The embedding column
// dimensionality is fixed at provisioning time; all records in the index share
// it.
func (d *DB) Migrate(ctx context.Context) error {
	dimensions := d.profile.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = 1536
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS "user" (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			nickname TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'USER',
			token_hash TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS lost_request (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES "user"(id),
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			campus TEXT NOT NULL DEFAULT '',
			attributes TEXT NOT NULL DEFAULT '{}',
			images TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'SUBMITTED',
			embedding vector(%d),
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, dimensions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS found_item (
			id TEXT PRIMARY KEY,
			handler_id TEXT NOT NULL REFERENCES "user"(id),
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			campus TEXT NOT NULL DEFAULT '',
			attributes TEXT NOT NULL DEFAULT '{}',
			images TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'FOUND',
			embedding vector(%d),
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, dimensions),
		`CREATE TABLE IF NOT EXISTS item_match (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL REFERENCES lost_request(id) ON DELETE CASCADE,
			found_item_id TEXT NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			rank INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_match_request_id ON item_match (request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lost_request_owner_id ON lost_request (owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_found_item_status ON found_item (status)`,
		// HNSW cosine index over the found-item candidate pool. k-NN queries
		// fail distinguishably when this (and the vector extension) is absent.
		`CREATE INDEX IF NOT EXISTS idx_found_item_embedding ON found_item
			USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration statement: %.60s", stmt)
		}
	}
	return nil
}
