// Package services contains server-side business logic. This file implements
// BatchStore, the durable create/merge/read unit for batches.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/codegen"
	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
)

// Policy selects what a repeat finalize by the same owner does.
type Policy string

const (
	// PolicyStrict mints a new code on every call.
	PolicyStrict Policy = "strict"
	// PolicyMerge appends to the owner's latest batch and keeps its code.
	PolicyMerge Policy = "merge"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown batch policy %q", s)
	}
}

// BatchStore persists batches through a RepositoryManager. Each
// CreateOrAppend runs as one transaction; code collisions found at insert
// time restart the transaction with a fresh code.
type BatchStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codes       *codegen.Generator
	policy      Policy
	logger      logging.Logger
	now         func() time.Time
}

// NewBatchStore constructs a BatchStore.
func NewBatchStore(db *sql.DB, rm repomanager.RepositoryManager, codes *codegen.Generator, policy Policy, l logging.Logger) *BatchStore {
	return &BatchStore{
		db:          db,
		repomanager: rm,
		codes:       codes,
		policy:      policy,
		logger:      l.With("module", "batch_store"),
		now:         time.Now,
	}
}

// Policy returns the configured policy.
func (s *BatchStore) Policy() Policy { return s.policy }

// CreateOrAppend stores items and returns the code addressing them.
//
// Under PolicyMerge a non-empty ownerID that already owns a batch gets items
// appended and the existing code back. Otherwise a new code is minted.
// Failures are common.ErrorExhaustedKeyspace or wrap common.ErrorPersistence.
func (s *BatchStore) CreateOrAppend(ctx context.Context, ownerID string, items []models.MediaReference) (string, error) {
	if len(items) == 0 {
		return "", common.ErrorEmptySession
	}

	attempts := s.codes.MaxAttempts()
	for attempt := 1; ; attempt++ {
		code, merged, err := s.createOrAppendOnce(ctx, ownerID, items)
		switch {
		case err == nil:
			s.logger.Info(ctx, "batch stored", "code", code, "owner", ownerID, "items", len(items), "merged", merged)
			return code, nil
		case errors.Is(err, common.ErrorCodeConflict) && attempt < attempts:
			s.logger.Warn(ctx, "code collided at insert, retrying", "attempt", attempt, "error", err)
			continue
		case errors.Is(err, common.ErrorCodeConflict):
			return "", fmt.Errorf("%w: %w", common.ErrorExhaustedKeyspace, err)
		case errors.Is(err, common.ErrorExhaustedKeyspace):
			s.logger.Error(ctx, "no free code", "owner", ownerID, "error", err)
			return "", err
		default:
			s.logger.Error(ctx, "batch persist failed", "owner", ownerID, "error", err)
			return "", common.Persistence("create or append", err)
		}
	}
}

func (s *BatchStore) createOrAppendOnce(ctx context.Context, ownerID string, items []models.MediaReference) (code string, merged bool, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Batches(tx)
		now := s.now().UTC()

		if s.policy == PolicyMerge && ownerID != "" {
			if err := repo.LockOwner(ctx, ownerID); err != nil {
				return err
			}
			existing, err := repo.FindLatestByOwner(ctx, ownerID)
			switch {
			case err == nil:
				code, merged = existing.Code, true
				return repo.AppendItems(ctx, existing.Code, items, now)
			case !errors.Is(err, common.ErrorNotFound):
				return err
			}
		}

		c, err := s.codes.Generate(ctx, repo)
		if err != nil {
			return err
		}
		code = c
		return repo.Create(ctx, &models.Batch{
			Code:      c,
			OwnerID:   ownerID,
			Items:     items,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return "", false, err
	}
	return code, merged, nil
}

// Get returns the ordered items stored under code. Unknown codes and
// batches without items yield common.ErrorInvalidCode.
func (s *BatchStore) Get(ctx context.Context, code string) ([]models.MediaReference, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, common.ErrorInvalidCode
	}

	b, err := s.repomanager.Batches(s.db).Get(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCode
		}
		return nil, common.Persistence("get batch", err)
	}
	if len(b.Items) == 0 {
		return nil, common.ErrorInvalidCode
	}
	return b.Items, nil
}

// Ping reports whether the backend is reachable.
func (s *BatchStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
