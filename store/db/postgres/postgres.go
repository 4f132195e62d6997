// Package postgres implements the store driver for PostgreSQL with pgvector.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/internal/profile"
)

// DB is the PostgreSQL implementation of store.Driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a connection to the PostgreSQL database specified by the DSN.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
