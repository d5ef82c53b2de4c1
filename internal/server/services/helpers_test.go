package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/codegen"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/batches"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())

	db, err := dbx.Open(ctx, dbx.SQLite, "file:services_"+name+"?mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, (&repomanager.SQLiteRepositoryManager{}).RunMigrations(ctx, db))
	return db
}

// openSQLiteFile opens a separate handle on a file database, the way a second
// process would, with the pragmas the server uses by default.
func openSQLiteFile(t *testing.T, path string) *sql.DB {
	t.Helper()
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := dbx.Open(context.Background(), dbx.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newBatchStore(t *testing.T, policy Policy, opts ...codegen.Option) (*BatchStore, *sql.DB) {
	t.Helper()
	db := newSQLiteDB(t)
	return NewBatchStore(db, &repomanager.SQLiteRepositoryManager{}, codegen.New(opts...), policy, logging.Nop()), db
}

func photo(id string) models.MediaReference {
	return models.MediaReference{Kind: models.KindPhoto, ExternalID: id}
}

func video(id string) models.MediaReference {
	return models.MediaReference{Kind: models.KindVideo, ExternalID: id}
}

// zeroReader makes codegen draw the same code every time.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// blindManager hides existing codes from the generator so collisions are
// only detected by the insert.
type blindManager struct {
	repomanager.RepositoryManager
}

func (m blindManager) Batches(db dbx.DBTX) batches.Repository {
	return blindRepo{Repository: m.RepositoryManager.Batches(db)}
}

type blindRepo struct {
	batches.Repository
}

func (blindRepo) CodeExists(context.Context, string) (bool, error) { return false, nil }

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}
