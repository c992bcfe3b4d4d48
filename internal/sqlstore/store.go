// Package sqlstore implements the back repositories over SQLite.
package sqlstore

import (
	"database/sql"
	"errors"
	"helo/internal/back"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3" // migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"      // migrate source
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sql driver
)

var _ back.Store = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

func Open(dsn string) (*Store, error) {
	// Why even bother converting names? A single greppable string across all
	// your source code is better than any odd conversion scheme you could ever
	// come up with.
	sqlx.NameMapper = func(v string) string { return v }

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies all pending migrations found at sourceURL (eg.
// "file://resources/migrations") to the SQLite database at path.
func Migrate(sourceURL, path string) error {
	migrator, err := migrate.New(sourceURL, "sqlite3://"+path)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return back.ErrNotFound
	}

	return err
}
