package market_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/market"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const platform = domain.AccountID("platform:fees")

func list(t *testing.T, m *market.Market, seller domain.AccountID, tokenID uint64, price domain.Amount) domain.Listing {
	t.Helper()
	staged, err := m.StageCreateListing(seller, tokenID, price, now)
	require.NoError(t, err)
	m.ApplyCreateListing(staged)
	return staged.Listing
}

func TestCreateListing(t *testing.T) {
	t.Run("assigns sequential ids and tracks the active slot", func(t *testing.T) {
		m := market.New(platform)
		first := list(t, m, "alice", 1, 100*domain.MicroUnit)
		second := list(t, m, "bob", 2, 50*domain.MicroUnit)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)

		active, ok := m.ActiveListingFor(1)
		require.True(t, ok)
		assert.Equal(t, first.ID, active.ID)
	})

	t.Run("rejects a second active listing for the same token", func(t *testing.T) {
		m := market.New(platform)
		list(t, m, "alice", 1, 100*domain.MicroUnit)

		_, err := m.StageCreateListing("alice", 1, 200*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrAlreadyListed)
	})

	t.Run("rejects non-positive prices", func(t *testing.T) {
		m := market.New(platform)
		_, err := m.StageCreateListing("alice", 1, 0, now)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
}

func TestBuy(t *testing.T) {
	t.Run("splits the payment with truncating fee arithmetic", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		staged, err := m.StageBuy("bob", listing.ID, 100*domain.MicroUnit, now)
		require.NoError(t, err)

		// 100.000000 at 250 bps: fee 2.500000, proceeds 97.500000.
		assert.Equal(t, domain.Amount(2_500_000), staged.Fee)
		assert.Equal(t, domain.Amount(97_500_000), staged.SellerProceeds)
		assert.Equal(t, staged.Price, staged.Fee+staged.SellerProceeds)

		m.ApplyBuy(staged)

		got, err := m.Get(listing.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ListingStatusSold, got.Status)
		require.NotNil(t, got.Buyer)
		assert.Equal(t, domain.AccountID("bob"), *got.Buyer)
		assert.Equal(t, staged.Fee, got.FeePaid)

		_, ok := m.ActiveListingFor(1)
		assert.False(t, ok)
	})

	t.Run("truncates sub-unit fees to zero", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 3) // 3 micro-units

		staged, err := m.StageBuy("bob", listing.ID, 3, now)
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(0), staged.Fee)
		assert.Equal(t, domain.Amount(3), staged.SellerProceeds)
	})

	t.Run("rejects bad purchases", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		_, err := m.StageBuy("bob", 99, 100*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrUnknownListing)

		_, err = m.StageBuy("alice", listing.ID, 100*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrSelfPurchase)

		_, err = m.StageBuy("bob", listing.ID, 99*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrWrongPayment)

		_, err = m.StageBuy("bob", listing.ID, 101*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrWrongPayment)

		staged, err := m.StageBuy("bob", listing.ID, 100*domain.MicroUnit, now)
		require.NoError(t, err)
		m.ApplyBuy(staged)

		_, err = m.StageBuy("carol", listing.ID, 100*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrListingInactive)
	})

	t.Run("fee changes apply at sale time, not listing time", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		require.NoError(t, m.SetFeeBps(1000))

		staged, err := m.StageBuy("bob", listing.ID, 100*domain.MicroUnit, now)
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(10*domain.MicroUnit), staged.Fee)
	})
}

func TestUpdatePrice(t *testing.T) {
	t.Run("seller reprices an active listing", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		staged, err := m.StageUpdatePrice("alice", listing.ID, 150*domain.MicroUnit)
		require.NoError(t, err)
		m.ApplyUpdatePrice(staged)

		got, err := m.Get(listing.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(150*domain.MicroUnit), got.Price)
	})

	t.Run("rejects non-seller and bad prices", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		_, err := m.StageUpdatePrice("bob", listing.ID, 150*domain.MicroUnit)
		assert.ErrorIs(t, err, domain.ErrNotSeller)

		_, err = m.StageUpdatePrice("alice", listing.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
}

func TestCancel(t *testing.T) {
	t.Run("seller cancels own listing", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		staged, err := m.StageCancel("alice", listing.ID, now)
		require.NoError(t, err)
		assert.False(t, staged.Forced)
		m.ApplyCancel(staged)

		got, err := m.Get(listing.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ListingStatusCancelled, got.Status)
		assert.Equal(t, domain.Amount(0), got.FeePaid)

		// Token may be listed again afterwards.
		relisted := list(t, m, "alice", 1, 90*domain.MicroUnit)
		assert.Equal(t, uint64(2), relisted.ID)
	})

	t.Run("rejects cancel by non-seller but allows emergency return", func(t *testing.T) {
		m := market.New(platform)
		listing := list(t, m, "alice", 1, 100*domain.MicroUnit)

		_, err := m.StageCancel("bob", listing.ID, now)
		assert.ErrorIs(t, err, domain.ErrNotSeller)

		staged, err := m.StageEmergencyReturn(listing.ID, now)
		require.NoError(t, err)
		assert.True(t, staged.Forced)
		assert.Equal(t, domain.AccountID("alice"), staged.Seller)
	})
}

func TestStats(t *testing.T) {
	t.Run("sold volume and fees accumulate from terminal sales only", func(t *testing.T) {
		m := market.New(platform)
		sold := list(t, m, "alice", 1, 100*domain.MicroUnit)
		cancelled := list(t, m, "bob", 2, 40*domain.MicroUnit)
		list(t, m, "carol", 3, 70*domain.MicroUnit)

		buy, err := m.StageBuy("dave", sold.ID, 100*domain.MicroUnit, now)
		require.NoError(t, err)
		m.ApplyBuy(buy)

		cancel, err := m.StageCancel("bob", cancelled.ID, now)
		require.NoError(t, err)
		m.ApplyCancel(cancel)

		stats := m.Stats()
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Active)
		assert.Equal(t, domain.Amount(100*domain.MicroUnit), stats.SoldVolume)
		assert.Equal(t, domain.Amount(2_500_000), stats.FeesCollected)
	})
}

func TestSetFeeBps(t *testing.T) {
	t.Run("caps the fee at ten percent", func(t *testing.T) {
		m := market.New(platform)
		assert.NoError(t, m.SetFeeBps(1000))
		assert.ErrorIs(t, m.SetFeeBps(1001), domain.ErrInvalidFee)
		assert.ErrorIs(t, m.SetFeeBps(-1), domain.ErrInvalidFee)
		assert.Equal(t, 1000, m.FeeBps())
	})
}

func TestRestore(t *testing.T) {
	t.Run("rebuilds active index, aggregates and sequence", func(t *testing.T) {
		m := market.New(platform)
		sold := list(t, m, "alice", 1, 100*domain.MicroUnit)
		list(t, m, "bob", 2, 40*domain.MicroUnit)

		buy, err := m.StageBuy("dave", sold.ID, 100*domain.MicroUnit, now)
		require.NoError(t, err)
		m.ApplyBuy(buy)

		listings := make([]domain.Listing, 0, 2)
		for id := uint64(1); id <= 2; id++ {
			listing, err := m.Get(id)
			require.NoError(t, err)
			listings = append(listings, listing)
		}

		restored := market.New(platform)
		restored.Restore(listings, 500)

		assert.Equal(t, 500, restored.FeeBps())
		stats := restored.Stats()
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 1, stats.Active)
		assert.Equal(t, domain.Amount(100*domain.MicroUnit), stats.SoldVolume)
		assert.Equal(t, domain.Amount(2_500_000), stats.FeesCollected)

		_, err = restored.StageCreateListing("carol", 2, 10*domain.MicroUnit, now)
		assert.ErrorIs(t, err, domain.ErrAlreadyListed)

		next := list(t, restored, "carol", 9, 10*domain.MicroUnit)
		assert.Equal(t, uint64(3), next.ID)
	})
}
