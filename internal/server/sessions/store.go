// Package sessions keeps the per-uploader buffers of media references that
// have been received but not yet finalized into a batch.
//
// Sessions live only in process memory. Every operation for a given uploader
// runs under that uploader's own mutex; different uploaders never contend
// beyond the short map lookup.
package sessions

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/models"
)

type session struct {
	mu    sync.Mutex
	items []models.MediaReference
}

// Store owns the uploader -> session mapping and the allow-list of
// uploaders permitted to write.
type Store struct {
	allowed map[int64]struct{}

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewStore builds a Store that accepts writes only from the given uploaders.
func NewStore(allowList []int64) *Store {
	allowed := make(map[int64]struct{}, len(allowList))
	for _, id := range allowList {
		allowed[id] = struct{}{}
	}
	return &Store{
		allowed:  allowed,
		sessions: make(map[int64]*session),
	}
}

// Allowed reports whether uploaderID is on the allow-list.
func (s *Store) Allowed(uploaderID int64) bool {
	_, ok := s.allowed[uploaderID]
	return ok
}

// session returns the uploader's session, creating it when create is set.
func (s *Store) session(uploaderID int64, create bool) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[uploaderID]
	if !ok && create {
		sess = &session{}
		s.sessions[uploaderID] = sess
	}
	return sess
}

// AppendItem adds item to the end of the uploader's session and returns the
// new session length.
func (s *Store) AppendItem(uploaderID int64, item models.MediaReference) (int, error) {
	if !s.Allowed(uploaderID) {
		return 0, common.ErrorUnauthorized
	}
	if err := item.Validate(); err != nil {
		return 0, fmt.Errorf("append item: %w", err)
	}

	sess := s.session(uploaderID, true)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.items = append(sess.items, item)
	return len(sess.items), nil
}

// Pending returns the number of items waiting in the uploader's session.
func (s *Store) Pending(uploaderID int64) int {
	sess := s.session(uploaderID, false)
	if sess == nil {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.items)
}

// Finalize removes and returns every pending item, leaving the session empty
// and ready for reuse. An empty session yields common.ErrorEmptySession and
// is not touched.
func (s *Store) Finalize(uploaderID int64) ([]models.MediaReference, error) {
	var out []models.MediaReference
	err := s.Commit(uploaderID, func(items []models.MediaReference) error {
		out = items
		return nil
	})
	return out, err
}

// Commit hands a copy of the pending items to fn while holding the
// uploader's lock. The session is reset only when fn returns nil, so a
// failed persist leaves every item in place for a later retry.
func (s *Store) Commit(uploaderID int64, fn func(items []models.MediaReference) error) error {
	if !s.Allowed(uploaderID) {
		return common.ErrorUnauthorized
	}

	sess := s.session(uploaderID, false)
	if sess == nil {
		return common.ErrorEmptySession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if len(sess.items) == 0 {
		return common.ErrorEmptySession
	}

	if err := fn(slices.Clone(sess.items)); err != nil {
		return err
	}

	sess.items = nil
	return nil
}
