package store

import (
	"context"
	"sort"
	"sync"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// MemoryStore keeps durable state in process memory. It backs tests and
// throwaway deployments; rehydration from it is only meaningful within one
// process lifetime.
type MemoryStore struct {
	mu           sync.RWMutex
	submissions  map[uint64]domain.Submission
	tokens       map[uint64]domain.Token
	listings     map[uint64]domain.Listing
	fingerprints map[string]uint64
	config       map[string]string
	events       []domain.Event
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions:  make(map[uint64]domain.Submission),
		tokens:       make(map[uint64]domain.Token),
		listings:     make(map[uint64]domain.Listing),
		fingerprints: make(map[string]uint64),
		config:       make(map[string]string),
	}
}

// Apply upserts the changeset under one lock acquisition, which is as
// atomic as memory gets.
func (s *MemoryStore) Apply(_ context.Context, cs *Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range cs.Submissions {
		s.submissions[sub.ID] = sub
	}
	for _, token := range cs.Tokens {
		s.tokens[token.ID] = token
	}
	for _, listing := range cs.Listings {
		s.listings[listing.ID] = listing
	}
	for fp, id := range cs.Fingerprints {
		s.fingerprints[fp] = id
	}
	for k, v := range cs.Config {
		s.config[k] = v
	}
	s.events = append(s.events, cs.Events...)
	return nil
}

// LoadAll copies out the full state.
func (s *MemoryStore) LoadAll(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Submissions:  make([]domain.Submission, 0, len(s.submissions)),
		Tokens:       make([]domain.Token, 0, len(s.tokens)),
		Listings:     make([]domain.Listing, 0, len(s.listings)),
		Fingerprints: make(map[string]uint64, len(s.fingerprints)),
		Config:       make(map[string]string, len(s.config)),
	}
	for _, sub := range s.submissions {
		snap.Submissions = append(snap.Submissions, sub)
	}
	for _, token := range s.tokens {
		snap.Tokens = append(snap.Tokens, token)
	}
	for _, listing := range s.listings {
		snap.Listings = append(snap.Listings, listing)
	}
	for fp, id := range s.fingerprints {
		snap.Fingerprints[fp] = id
	}
	for k, v := range s.config {
		snap.Config[k] = v
	}

	sort.Slice(snap.Submissions, func(i, j int) bool { return snap.Submissions[i].ID < snap.Submissions[j].ID })
	sort.Slice(snap.Tokens, func(i, j int) bool { return snap.Tokens[i].ID < snap.Tokens[j].ID })
	sort.Slice(snap.Listings, func(i, j int) bool { return snap.Listings[i].ID < snap.Listings[j].ID })
	return snap, nil
}

// ListEvents returns journaled events oldest first. Events were appended in
// commit order so no sort is needed.
func (s *MemoryStore) ListEvents(_ context.Context, filter EventFilter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0, len(s.events))
	skipped := 0
	for _, e := range s.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}
