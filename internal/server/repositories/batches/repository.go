// Package batches persists batches: a unique code, an optional owner and the
// ordered media references, one row per batch with the items kept as a JSON
// array.
//
// Two implementations share the Repository contract: PostgresRepository for
// multi-instance deployments and SQLiteRepository for a single embedded
// file. Every method runs against a dbx.DBTX, so callers decide whether a
// call is part of a transaction.
package batches

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/models"
)

// Repository describes the storage primitives the batch store composes into
// its atomic create-or-append unit.
type Repository interface {
	// LockOwner serializes concurrent writers for ownerID until the
	// surrounding transaction ends.
	LockOwner(ctx context.Context, ownerID string) error

	// CodeExists reports whether a batch already uses code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// Create inserts a new batch. A duplicate code yields
	// common.ErrorCodeConflict.
	Create(ctx context.Context, b *models.Batch) error

	// FindLatestByOwner returns the owner's most recent batch or
	// common.ErrorNotFound.
	FindLatestByOwner(ctx context.Context, ownerID string) (*models.Batch, error)

	// AppendItems adds items to the end of the batch addressed by code.
	AppendItems(ctx context.Context, code string, items []models.MediaReference, at time.Time) error

	// Get returns the batch addressed by code or common.ErrorNotFound.
	Get(ctx context.Context, code string) (*models.Batch, error)
}
