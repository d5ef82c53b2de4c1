package batches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Repository over an embedded SQLite file.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// LockOwner issues a no-op write so the surrounding transaction holds the
// database write lock from its first statement. SQLite has a single writer,
// which makes the lock database-wide rather than per owner.
func (r *SQLiteRepository) LockOwner(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE batches SET owner_id = owner_id WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE code = ?)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, b *models.Batch) error {
	items, err := encodeItems(b.Items)
	if err != nil {
		return err
	}

	query := `INSERT INTO batches (code, owner_id, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, b.Code, nullString(b.OwnerID), string(items), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return fmt.Errorf("%w: %s", common.ErrorCodeConflict, b.Code)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindLatestByOwner(ctx context.Context, ownerID string) (*models.Batch, error) {
	query := `
		SELECT code, owner_id, items, created_at, updated_at FROM batches
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`
	return scanBatch(r.db.QueryRowContext(ctx, query, ownerID))
}

// AppendItems rewrites the stored array with items appended. It must run in
// a transaction that already holds the write lock (see LockOwner).
func (r *SQLiteRepository) AppendItems(ctx context.Context, code string, items []models.MediaReference, at time.Time) error {
	b, err := r.Get(ctx, code)
	if err != nil {
		return err
	}

	raw, err := encodeItems(append(b.Items, items...))
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE batches SET items = ?, updated_at = ? WHERE code = ?`, string(raw), at, code)
	if err != nil {
		return fmt.Errorf("append items: %w", err)
	}
	return expectOneRow(res, code)
}

func (r *SQLiteRepository) Get(ctx context.Context, code string) (*models.Batch, error) {
	query := `SELECT code, owner_id, items, created_at, updated_at FROM batches WHERE code = ?`
	return scanBatch(r.db.QueryRowContext(ctx, query, code))
}
