package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// RunStoreTests runs the shared store suite against any Store implementation.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"SubmissionRoundTrip", testSubmissionRoundTrip},
		{"SubmissionUpsert", testSubmissionUpsert},
		{"TokenRoundTrip", testTokenRoundTrip},
		{"ListingRoundTrip", testListingRoundTrip},
		{"FingerprintIndex", testFingerprintIndex},
		{"ConfigUpsert", testConfigUpsert},
		{"EventJournal", testEventJournal},
		{"EmptyChangeset", testEmptyChangeset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, s)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	RunStoreTests(t,
		func(t *testing.T) Store { return NewMemoryStore() },
		func(t *testing.T) {},
	)
}

func testSubmission(id uint64) domain.Submission {
	return domain.Submission{
		ID:               id,
		Owner:            "alice",
		ImageFingerprint: "fp-" + string(rune('0'+id)),
		GreeneryPct:      60,
		CarbonValue:      5 * domain.MicroUnit,
		Location:         "12.97,77.59",
		Verified:         true,
		CreatedAt:        testTime,
	}
}

func testToken(id uint64, owner domain.AccountID) domain.Token {
	return domain.Token{
		ID:          id,
		Owner:       owner,
		CarbonValue: 5 * domain.MicroUnit,
		GreeneryPct: 60,
		MintedAt:    testTime,
	}
}

func testSubmissionRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	first := testSubmission(1)
	second := testSubmission(2)
	second.Verified = false

	require.NoError(t, s.Apply(ctx, &Changeset{Submissions: []domain.Submission{second, first}}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Submissions, 2)

	// Snapshot comes back ordered by id regardless of write order.
	assert.Equal(t, uint64(1), snap.Submissions[0].ID)
	assert.Equal(t, uint64(2), snap.Submissions[1].ID)

	got := snap.Submissions[0]
	assert.Equal(t, first.Owner, got.Owner)
	assert.Equal(t, first.ImageFingerprint, got.ImageFingerprint)
	assert.Equal(t, first.GreeneryPct, got.GreeneryPct)
	assert.Equal(t, first.CarbonValue, got.CarbonValue)
	assert.True(t, got.Verified)
	assert.WithinDuration(t, first.CreatedAt, got.CreatedAt, time.Second)
	assert.False(t, snap.Submissions[1].Verified)
}

func testSubmissionUpsert(t *testing.T, s Store) {
	ctx := context.Background()

	sub := testSubmission(1)
	sub.Verified = false
	require.NoError(t, s.Apply(ctx, &Changeset{Submissions: []domain.Submission{sub}}))

	tokenID := uint64(7)
	sub.Verified = true
	sub.Tokenized = true
	sub.TokenID = &tokenID
	require.NoError(t, s.Apply(ctx, &Changeset{Submissions: []domain.Submission{sub}}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Submissions, 1)

	got := snap.Submissions[0]
	assert.True(t, got.Verified)
	assert.True(t, got.Tokenized)
	require.NotNil(t, got.TokenID)
	assert.Equal(t, tokenID, *got.TokenID)
}

func testTokenRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	token := testToken(1, "alice")
	require.NoError(t, s.Apply(ctx, &Changeset{Tokens: []domain.Token{token}}))

	// Ownership change upserts the same row.
	token.Owner = "bob"
	require.NoError(t, s.Apply(ctx, &Changeset{Tokens: []domain.Token{token}}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tokens, 1)

	got := snap.Tokens[0]
	assert.Equal(t, domain.AccountID("bob"), got.Owner)
	assert.Equal(t, token.CarbonValue, got.CarbonValue)
	assert.WithinDuration(t, token.MintedAt, got.MintedAt, time.Second)
}

func testListingRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	listing := domain.Listing{
		ID:        1,
		TokenID:   3,
		Seller:    "alice",
		Price:     100 * domain.MicroUnit,
		Status:    domain.ListingStatusActive,
		CreatedAt: testTime,
	}
	require.NoError(t, s.Apply(ctx, &Changeset{Listings: []domain.Listing{listing}}))

	buyer := domain.AccountID("bob")
	closedAt := testTime.Add(time.Hour)
	listing.Status = domain.ListingStatusSold
	listing.Buyer = &buyer
	listing.FeePaid = 2_500_000
	listing.ClosedAt = &closedAt
	require.NoError(t, s.Apply(ctx, &Changeset{Listings: []domain.Listing{listing}}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Listings, 1)

	got := snap.Listings[0]
	assert.Equal(t, domain.ListingStatusSold, got.Status)
	require.NotNil(t, got.Buyer)
	assert.Equal(t, buyer, *got.Buyer)
	assert.Equal(t, domain.Amount(2_500_000), got.FeePaid)
	require.NotNil(t, got.ClosedAt)
	assert.WithinDuration(t, closedAt, *got.ClosedAt, time.Second)
}

func testFingerprintIndex(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, &Changeset{
		Fingerprints: map[string]uint64{"fp-a": 1},
	}))
	require.NoError(t, s.Apply(ctx, &Changeset{
		Fingerprints: map[string]uint64{"fp-b": 2},
	}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"fp-a": 1, "fp-b": 2}, snap.Fingerprints)
}

func testConfigUpsert(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, &Changeset{
		Config: map[string]string{"platform_fee_bps": "250", "ledger_paused": "false"},
	}))
	require.NoError(t, s.Apply(ctx, &Changeset{
		Config: map[string]string{"platform_fee_bps": "500"},
	}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "500", snap.Config["platform_fee_bps"])
	assert.Equal(t, "false", snap.Config["ledger_paused"])
}

func testEventJournal(t *testing.T, s Store) {
	ctx := context.Background()

	events := []domain.Event{
		domain.NewEvent(domain.EventSubmissionRegistered, testTime, domain.SubmissionEventData{SubmissionID: 1}),
		domain.NewEvent(domain.EventTokenMinted, testTime.Add(time.Second), domain.TokenEventData{TokenID: 1}),
		domain.NewEvent(domain.EventTokenMinted, testTime.Add(2*time.Second), domain.TokenEventData{TokenID: 2}),
	}
	for _, e := range events {
		require.NoError(t, s.Apply(ctx, &Changeset{Events: []domain.Event{e}}))
	}

	t.Run("returns all in commit order", func(t *testing.T) {
		got, err := s.ListEvents(ctx, EventFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := range events {
			assert.Equal(t, events[i].ID, got[i].ID)
			assert.Equal(t, events[i].Type, got[i].Type)
		}
	})

	t.Run("payloads marshal as JSON objects", func(t *testing.T) {
		got, err := s.ListEvents(ctx, EventFilter{})
		require.NoError(t, err)
		require.NotEmpty(t, got)
		for _, e := range got {
			raw, err := json.Marshal(e.Data)
			require.NoError(t, err)
			var payload map[string]any
			require.NoError(t, json.Unmarshal(raw, &payload), "payload %q is not a JSON object", raw)
		}
	})

	t.Run("filters by type", func(t *testing.T) {
		got, err := s.ListEvents(ctx, EventFilter{Type: domain.EventTokenMinted})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[1].ID, got[0].ID)
		assert.Equal(t, events[2].ID, got[1].ID)
	})

	t.Run("applies limit and offset", func(t *testing.T) {
		got, err := s.ListEvents(ctx, EventFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events[1].ID, got[0].ID)
	})
}

func testEmptyChangeset(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, &Changeset{}))

	snap, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Submissions)
	assert.Empty(t, snap.Tokens)
	assert.Empty(t, snap.Listings)
}
