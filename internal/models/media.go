// Package models defines the data types shared by sessions, the batch store
// and the gateway.
package models

import (
	"fmt"
	"time"
)

// MediaKind tags what an external reference points at.
type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// Valid reports whether k is one of the known kinds.
func (k MediaKind) Valid() bool {
	return k == KindPhoto || k == KindVideo
}

// MediaReference is an opaque handle into storage owned by the messaging
// platform. The content itself is never resolved or copied.
type MediaReference struct {
	Kind       MediaKind `json:"kind"`
	ExternalID string    `json:"external_id"`
}

// Validate checks that the reference can be persisted.
func (m MediaReference) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("unknown media kind %q", m.Kind)
	}
	if m.ExternalID == "" {
		return fmt.Errorf("empty external id")
	}
	return nil
}

// Batch is a durable, code-addressable ordered list of media references.
type Batch struct {
	Code string
	// OwnerID is empty for batches created without an owner.
	OwnerID   string
	Items     []MediaReference
	CreatedAt time.Time
	UpdatedAt time.Time
}
