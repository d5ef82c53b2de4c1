package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/batches"
	"github.com/pressly/goose/v3"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Dialect() dbx.Dialect { return dbx.SQLite }

// Batches returns a batches.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Batches(db dbx.DBTX) batches.Repository {
	return batches.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded sqlite/ migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, goose.DialectSQLite3, "sqlite")
}
