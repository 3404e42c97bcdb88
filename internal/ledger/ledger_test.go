package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/ledger"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mintOne(t *testing.T, l *ledger.Ledger, owner domain.AccountID) domain.Token {
	t.Helper()
	staged, err := l.StageMint(ledger.MintRequest{
		Owner:       owner,
		CarbonValue: 5 * domain.MicroUnit,
		GreeneryPct: 60,
		Location:    "12.97,77.59",
	}, now)
	require.NoError(t, err)
	l.ApplyMint(staged)
	return staged.Tokens()[0]
}

func TestMint(t *testing.T) {
	t.Run("assigns sequential ids starting at 1", func(t *testing.T) {
		l := ledger.New()
		first := mintOne(t, l, "alice")
		second := mintOne(t, l, "bob")

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)
		assert.Equal(t, uint64(2), l.LastID())
	})

	t.Run("records immutable metadata", func(t *testing.T) {
		l := ledger.New()
		minted := mintOne(t, l, "alice")

		got, err := l.MetadataOf(minted.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountID("alice"), got.Owner)
		assert.Equal(t, domain.Amount(5*domain.MicroUnit), got.CarbonValue)
		assert.Equal(t, 60, got.GreeneryPct)
		assert.Equal(t, now, got.MintedAt)
	})

	t.Run("rejects invalid metadata", func(t *testing.T) {
		l := ledger.New()

		_, err := l.StageMint(ledger.MintRequest{Owner: "alice", CarbonValue: 0, GreeneryPct: 50}, now)
		assert.ErrorIs(t, err, domain.ErrInvalidMetadata)

		_, err = l.StageMint(ledger.MintRequest{Owner: "alice", CarbonValue: 1, GreeneryPct: 101}, now)
		assert.ErrorIs(t, err, domain.ErrInvalidMetadata)

		_, err = l.StageMint(ledger.MintRequest{Owner: "", CarbonValue: 1, GreeneryPct: 50}, now)
		assert.ErrorIs(t, err, domain.ErrInvalidAccount)
	})

	t.Run("rejects mint while paused", func(t *testing.T) {
		l := ledger.New()
		l.SetPaused(true)

		_, err := l.StageMint(ledger.MintRequest{Owner: "alice", CarbonValue: 1, GreeneryPct: 50}, now)
		assert.ErrorIs(t, err, domain.ErrPaused)
	})
}

func TestBatchMint(t *testing.T) {
	t.Run("one invalid item fails the whole batch with no ids consumed", func(t *testing.T) {
		l := ledger.New()

		reqs := []ledger.MintRequest{
			{Owner: "alice", CarbonValue: 1, GreeneryPct: 50},
			{Owner: "bob", CarbonValue: -1, GreeneryPct: 50},
		}
		_, err := l.StageBatchMint(reqs, now)
		require.ErrorIs(t, err, domain.ErrInvalidMetadata)
		assert.Equal(t, uint64(0), l.LastID())

		// Next successful mint still gets id 1.
		minted := mintOne(t, l, "alice")
		assert.Equal(t, uint64(1), minted.ID)
	})

	t.Run("assigns consecutive ids within a batch", func(t *testing.T) {
		l := ledger.New()
		reqs := []ledger.MintRequest{
			{Owner: "alice", CarbonValue: 1, GreeneryPct: 10},
			{Owner: "alice", CarbonValue: 2, GreeneryPct: 20},
			{Owner: "bob", CarbonValue: 3, GreeneryPct: 30},
		}
		staged, err := l.StageBatchMint(reqs, now)
		require.NoError(t, err)
		l.ApplyMint(staged)

		tokens := staged.Tokens()
		require.Len(t, tokens, 3)
		assert.Equal(t, uint64(1), tokens[0].ID)
		assert.Equal(t, uint64(2), tokens[1].ID)
		assert.Equal(t, uint64(3), tokens[2].ID)
		assert.Equal(t, []uint64{1, 2}, l.TokensOwnedBy("alice"))
		assert.Equal(t, []uint64{3}, l.TokensOwnedBy("bob"))
	})
}

func TestTransfer(t *testing.T) {
	t.Run("moves ownership and updates the owner index", func(t *testing.T) {
		l := ledger.New()
		minted := mintOne(t, l, "alice")

		staged, err := l.StageTransfer("alice", "bob", minted.ID)
		require.NoError(t, err)
		l.ApplyTransfer(staged)

		owner, err := l.OwnerOf(minted.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountID("bob"), owner)
		assert.Empty(t, l.TokensOwnedBy("alice"))
		assert.Equal(t, []uint64{minted.ID}, l.TokensOwnedBy("bob"))
	})

	t.Run("rejects transfer by non-owner", func(t *testing.T) {
		l := ledger.New()
		minted := mintOne(t, l, "alice")

		_, err := l.StageTransfer("bob", "carol", minted.ID)
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		l := ledger.New()
		_, err := l.StageTransfer("alice", "bob", 42)
		assert.ErrorIs(t, err, domain.ErrUnknownToken)
	})

	t.Run("rejects transfer while paused but allows forced transfer", func(t *testing.T) {
		l := ledger.New()
		minted := mintOne(t, l, "alice")
		l.SetPaused(true)

		_, err := l.StageTransfer("alice", "bob", minted.ID)
		assert.ErrorIs(t, err, domain.ErrPaused)

		staged, err := l.StageForcedTransfer("alice", "bob", minted.ID)
		require.NoError(t, err)
		l.ApplyTransfer(staged)

		owner, err := l.OwnerOf(minted.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountID("bob"), owner)
	})
}

func TestRestore(t *testing.T) {
	t.Run("rebuilds sequence and owner index", func(t *testing.T) {
		l := ledger.New()
		mintOne(t, l, "alice")
		mintOne(t, l, "alice")
		mintOne(t, l, "bob")

		tokens := make([]domain.Token, 0, 3)
		for id := uint64(1); id <= 3; id++ {
			token, err := l.MetadataOf(id)
			require.NoError(t, err)
			tokens = append(tokens, token)
		}

		restored := ledger.New()
		restored.Restore(tokens, true, "https://tokens.example.org/")

		assert.Equal(t, uint64(3), restored.LastID())
		assert.True(t, restored.Paused())
		assert.Equal(t, "https://tokens.example.org/", restored.BaseLocator())
		assert.Equal(t, []uint64{1, 2}, restored.TokensOwnedBy("alice"))

		restored.SetPaused(false)
		minted := mintOne(t, restored, "carol")
		assert.Equal(t, uint64(4), minted.ID)
	})
}
