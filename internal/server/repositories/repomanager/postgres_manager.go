package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/batches"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Dialect() dbx.Dialect { return dbx.Postgres }

// Batches returns a batches.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Batches(db dbx.DBTX) batches.Repository {
	return batches.NewPostgresRepository(db)
}

// RunMigrations applies the embedded postgres/ migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, goose.DialectPostgres, "postgres")
}
