// Package sqlite implements the store driver for SQLite.
//
// SQLite is supported on a best-effort basis for development and demo
// instances. Vector similarity search runs in the application layer over
// BLOB-encoded embeddings; there is no vector index to provision, so
// store.ErrVectorIndexMissing is never returned by this driver. Concurrent
// writes are subject to the usual SQLite locking limits.
package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/campusfind/campusfind/internal/profile"
)

// DB is the SQLite implementation of store.Driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the DSN path.
//
// Notes on pragmas (each prefixed with `_pragma=` for modernc.org/sqlite):
// busy_timeout avoids spurious SQLITE_BUSY under the trigger fan-out, and WAL
// journal mode is the recommended mode for server processes.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{
		db:      sqliteDB,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}
