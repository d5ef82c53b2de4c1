package batches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over a dbx.DBTX backed by pgx.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LockOwner takes a transaction-scoped advisory lock keyed by the owner, so
// finalizes for the same owner serialize across every process sharing the
// database. Outside a transaction the lock is released immediately.
func (r *PostgresRepository) LockOwner(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.Batch) error {
	items, err := encodeItems(b.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO batches (code, owner_id, items, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, query, b.Code, nullString(b.OwnerID), items, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", common.ErrorCodeConflict, b.Code)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// FindLatestByOwner locks the returned row until the transaction ends.
func (r *PostgresRepository) FindLatestByOwner(ctx context.Context, ownerID string) (*models.Batch, error) {
	query := `
		SELECT code, owner_id, items, created_at, updated_at FROM batches
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	return scanBatch(r.db.QueryRowContext(ctx, query, ownerID))
}

func (r *PostgresRepository) AppendItems(ctx context.Context, code string, items []models.MediaReference, at time.Time) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}

	query := `UPDATE batches SET items = items || $2::jsonb, updated_at = $3 WHERE code = $1`
	res, err := r.db.ExecContext(ctx, query, code, raw, at)
	if err != nil {
		return fmt.Errorf("append items: %w", err)
	}
	return expectOneRow(res, code)
}

func (r *PostgresRepository) Get(ctx context.Context, code string) (*models.Batch, error) {
	query := `SELECT code, owner_id, items, created_at, updated_at FROM batches WHERE code = $1`
	return scanBatch(r.db.QueryRowContext(ctx, query, code))
}

func scanBatch(row *sql.Row) (*models.Batch, error) {
	var (
		b     models.Batch
		owner sql.NullString
		raw   []byte
	)
	if err := row.Scan(&b.Code, &owner, &raw, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("select batch: %w", err)
	}

	items, err := decodeItems(raw)
	if err != nil {
		return nil, err
	}
	b.OwnerID = owner.String
	b.Items = items
	return &b, nil
}

func expectOneRow(res sql.Result, code string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("batch %s: %w", code, common.ErrorNotFound)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
