package batches

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := dbx.Open(ctx, dbx.SQLite, "file:batches_"+t.Name()+"?mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fsys, err := fs.Sub(migrations.Migrations, "sqlite")
	require.NoError(t, err)
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	require.NoError(t, err)
	_, err = p.Up(ctx)
	require.NoError(t, err)

	return db
}

func TestSQLiteCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newSQLiteDB(t))

	require.NoError(t, repo.Create(ctx, &models.Batch{Code: "Ab3dEf7h", OwnerID: "42", Items: twoItems, CreatedAt: ts, UpdatedAt: ts}))

	b, err := repo.Get(ctx, "Ab3dEf7h")
	require.NoError(t, err)
	assert.Equal(t, "42", b.OwnerID)
	assert.Equal(t, twoItems, b.Items)
	assert.True(t, ts.Equal(b.CreatedAt))

	ok, err := repo.CodeExists(ctx, "Ab3dEf7h")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CodeExists(ctx, "missing1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteGet_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteDB(t))

	_, err := repo.Get(context.Background(), "doesNotExist")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteCreate_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newSQLiteDB(t))

	require.NoError(t, repo.Create(ctx, &models.Batch{Code: "dup", Items: twoItems, CreatedAt: ts, UpdatedAt: ts}))
	err := repo.Create(ctx, &models.Batch{Code: "dup", Items: twoItems, CreatedAt: ts, UpdatedAt: ts})
	require.ErrorIs(t, err, common.ErrorCodeConflict)
}

func TestSQLiteFindLatestByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newSQLiteDB(t))

	_, err := repo.FindLatestByOwner(ctx, "42")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Create(ctx, &models.Batch{Code: "old", OwnerID: "42", Items: twoItems, CreatedAt: ts, UpdatedAt: ts}))
	later := ts.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, &models.Batch{Code: "new", OwnerID: "42", Items: twoItems, CreatedAt: later, UpdatedAt: later}))
	require.NoError(t, repo.Create(ctx, &models.Batch{Code: "other", OwnerID: "7", Items: twoItems, CreatedAt: later, UpdatedAt: later}))

	b, err := repo.FindLatestByOwner(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "new", b.Code)
}

func TestSQLiteAppendItems_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewSQLiteRepository(db)

	require.NoError(t, repo.Create(ctx, &models.Batch{Code: "Ab3dEf7h", OwnerID: "42", Items: twoItems, CreatedAt: ts, UpdatedAt: ts}))

	more := []models.MediaReference{{Kind: models.KindPhoto, ExternalID: "p2"}}
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := r.LockOwner(ctx, "42"); err != nil {
			return err
		}
		return r.AppendItems(ctx, "Ab3dEf7h", more, ts.Add(time.Minute))
	})
	require.NoError(t, err)

	b, err := repo.Get(ctx, "Ab3dEf7h")
	require.NoError(t, err)
	assert.Equal(t, append(append([]models.MediaReference{}, twoItems...), more...), b.Items)
	assert.True(t, ts.Add(time.Minute).Equal(b.UpdatedAt))
}

func TestSQLiteAppendItems_MissingBatch(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteDB(t))

	err := repo.AppendItems(context.Background(), "gone", twoItems, ts)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
