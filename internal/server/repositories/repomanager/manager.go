// Package repomanager vends dialect-specific repository implementations and
// runs the embedded goose migrations for the chosen backend.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/migrations"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/batches"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	Batches(db dbx.DBTX) batches.Repository
}

// New returns the manager for d.
func New(d dbx.Dialect) (RepositoryManager, error) {
	switch d {
	case dbx.Postgres:
		return &PostgresRepositoryManager{}, nil
	case dbx.SQLite:
		return &SQLiteRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d)
	}
}

// gooseUp is a seam for testing migration runs.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrations.Migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations dir %s: %w", dir, err)
	}
	if err := gooseUp(ctx, dialect, db, fsys); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
