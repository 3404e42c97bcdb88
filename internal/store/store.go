// Package store persists engine state. The engine writes one Changeset per
// committed operation; implementations must apply it atomically so the
// durable state never shows a half-applied mutation.
package store

import (
	"context"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks

// Changeset is everything one engine operation touched. Records are
// upserts keyed by their ids; Fingerprints is append-only.
type Changeset struct {
	Submissions  []domain.Submission
	Tokens       []domain.Token
	Listings     []domain.Listing
	Fingerprints map[string]uint64
	Config       map[string]string
	Events       []domain.Event
}

// Empty reports whether the changeset carries nothing to persist.
func (c *Changeset) Empty() bool {
	return len(c.Submissions) == 0 && len(c.Tokens) == 0 && len(c.Listings) == 0 &&
		len(c.Fingerprints) == 0 && len(c.Config) == 0 && len(c.Events) == 0
}

// Snapshot is the full durable state, loaded once at startup for
// rehydration.
type Snapshot struct {
	Submissions  []domain.Submission
	Tokens       []domain.Token
	Listings     []domain.Listing
	Fingerprints map[string]uint64
	Config       map[string]string
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Type   domain.EventType
	Limit  int
	Offset int
}

// Store is the engine's persistence boundary.
type Store interface {
	// Apply persists the changeset in a single transaction.
	Apply(ctx context.Context, cs *Changeset) error
	// LoadAll reads the full durable state for rehydration.
	LoadAll(ctx context.Context) (*Snapshot, error)
	// ListEvents reads the committed event journal, oldest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error)
}
