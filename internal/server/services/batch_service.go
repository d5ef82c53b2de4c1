package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/mediadrop/internal/chunk"
	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/sessions"
)

// Store is what BatchService needs from the durable layer.
type Store interface {
	CreateOrAppend(ctx context.Context, ownerID string, items []models.MediaReference) (string, error)
	Get(ctx context.Context, code string) ([]models.MediaReference, error)
}

// SendFunc delivers one group of media to the requester.
type SendFunc func(ctx context.Context, group []models.MediaReference) error

// BatchService is the contract exposed to the gateway: upload sessions,
// finalize into a batch, and chunked retrieval.
type BatchService struct {
	sessions *sessions.Store
	store    Store
	logger   logging.Logger
}

// NewBatchService wires the session store and the batch store together.
func NewBatchService(ss *sessions.Store, store Store, l logging.Logger) *BatchService {
	return &BatchService{
		sessions: ss,
		store:    store,
		logger:   l.With("module", "batch_service"),
	}
}

// Allowed reports whether uploaderID may upload and finalize.
func (s *BatchService) Allowed(uploaderID int64) bool {
	return s.sessions.Allowed(uploaderID)
}

// Pending returns how many items wait in the uploader's session.
func (s *BatchService) Pending(uploaderID int64) int {
	return s.sessions.Pending(uploaderID)
}

// AppendItem buffers item in the uploader's session and returns the new
// session length.
func (s *BatchService) AppendItem(ctx context.Context, uploaderID int64, item models.MediaReference) (int, error) {
	n, err := s.sessions.AppendItem(uploaderID, item)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "append rejected", "uploader", uploaderID)
		}
		return 0, err
	}
	s.logger.Debug(ctx, "item buffered", "uploader", uploaderID, "kind", item.Kind, "pending", n)
	return n, nil
}

// Finalize persists the uploader's pending items and returns the batch code.
// The session is cleared only after the batch is stored; on any failure the
// pending items stay in place.
func (s *BatchService) Finalize(ctx context.Context, uploaderID int64) (string, error) {
	var code string
	err := s.sessions.Commit(uploaderID, func(items []models.MediaReference) error {
		c, err := s.store.CreateOrAppend(ctx, strconv.FormatInt(uploaderID, 10), items)
		if err != nil {
			return err
		}
		code = c
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "session finalized", "uploader", uploaderID, "code", code)
	return code, nil
}

// Retrieve returns the batch under code split into delivery groups of at
// most chunk.MaxGroupSize items.
func (s *BatchService) Retrieve(ctx context.Context, code string) ([][]models.MediaReference, error) {
	items, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return chunk.Split(items, chunk.MaxGroupSize), nil
}

// Deliver retrieves code and hands each group to send in order. The first
// failing send stops delivery; remaining groups are not attempted. It
// returns the number of groups delivered.
func (s *BatchService) Deliver(ctx context.Context, code string, send SendFunc) (int, error) {
	groups, err := s.Retrieve(ctx, code)
	if err != nil {
		return 0, err
	}

	for i, g := range groups {
		if err := send(ctx, g); err != nil {
			s.logger.Error(ctx, "delivery failed", "code", code, "group", i, "groups", len(groups), "error", err)
			return i, fmt.Errorf("deliver group %d of %d: %w", i+1, len(groups), err)
		}
	}
	s.logger.Info(ctx, "batch delivered", "code", code, "groups", len(groups))
	return len(groups), nil
}
