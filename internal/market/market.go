// Package market implements the fixed-price escrow marketplace. Listing a
// token moves it into marketplace custody; buying or cancelling releases it.
// The market never touches balances itself: each staged purchase carries the
// exact funds split and the engine hands it to the settlement layer before
// anything is applied.
package market

import (
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/sequence"
)

const (
	// FeeDenominator converts basis points to a fraction.
	FeeDenominator = 10_000
	// MaxFeeBps caps the platform fee at 10%.
	MaxFeeBps = 1_000
	// DefaultFeeBps is the platform fee applied until an admin changes it.
	DefaultFeeBps = 250
)

// EscrowAccount holds listed tokens while their listing is active.
const EscrowAccount = domain.AccountID("market:escrow")

// Market tracks listings and the fee configuration. Sold and cancelled
// listings stay forever; activeByToken enforces at most one open listing per
// token.
type Market struct {
	seq           *sequence.Counter
	listings      map[uint64]*domain.Listing
	activeByToken map[uint64]uint64

	feeBps          int
	platformAccount domain.AccountID

	activeCount   int
	soldVolume    domain.Amount
	feesCollected domain.Amount
}

// New returns an empty market. Collected fees settle to platformAccount.
func New(platformAccount domain.AccountID) *Market {
	return &Market{
		seq:             sequence.New(),
		listings:        make(map[uint64]*domain.Listing),
		activeByToken:   make(map[uint64]uint64),
		feeBps:          DefaultFeeBps,
		platformAccount: platformAccount,
	}
}

// StagedListing is a validated listing creation that has not been applied.
type StagedListing struct {
	Listing domain.Listing
}

// StageCreateListing validates listing tokenID at price. Ownership was
// already checked by the engine against the ledger; the market only rejects
// double listings and bad prices.
func (m *Market) StageCreateListing(seller domain.AccountID, tokenID uint64, price domain.Amount, now time.Time) (*StagedListing, error) {
	if price <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	if _, listed := m.activeByToken[tokenID]; listed {
		return nil, domain.ErrAlreadyListed
	}

	return &StagedListing{
		Listing: domain.Listing{
			ID:        m.seq.Peek(0),
			TokenID:   tokenID,
			Seller:    seller,
			Price:     price,
			Status:    domain.ListingStatusActive,
			CreatedAt: now,
		},
	}, nil
}

// ApplyCreateListing records the listing and claims the token's active slot.
func (m *Market) ApplyCreateListing(staged *StagedListing) {
	listing := staged.Listing
	m.listings[listing.ID] = &listing
	m.activeByToken[listing.TokenID] = listing.ID
	m.seq.Advance(1)
	m.activeCount++
}

// StagedPurchase is a validated purchase carrying the exact funds split. Fee
// is integer basis-point truncation; SellerProceeds is the remainder, so the
// two always sum to Price.
type StagedPurchase struct {
	ListingID      uint64
	TokenID        uint64
	Seller         domain.AccountID
	Buyer          domain.AccountID
	Price          domain.Amount
	Fee            domain.Amount
	SellerProceeds domain.Amount
	ClosedAt       time.Time
}

// StageBuy validates buying a listing with an exact payment. The buyer's
// funds are not checked here; the settlement layer rejects uncovered
// purchases before apply.
func (m *Market) StageBuy(buyer domain.AccountID, listingID uint64, payment domain.Amount, now time.Time) (*StagedPurchase, error) {
	listing, ok := m.listings[listingID]
	if !ok {
		return nil, domain.ErrUnknownListing
	}
	if !listing.Active() {
		return nil, domain.ErrListingInactive
	}
	if buyer == listing.Seller {
		return nil, domain.ErrSelfPurchase
	}
	if payment != listing.Price {
		return nil, domain.ErrWrongPayment
	}

	fee := listing.Price * domain.Amount(m.feeBps) / FeeDenominator
	return &StagedPurchase{
		ListingID:      listingID,
		TokenID:        listing.TokenID,
		Seller:         listing.Seller,
		Buyer:          buyer,
		Price:          listing.Price,
		Fee:            fee,
		SellerProceeds: listing.Price - fee,
		ClosedAt:       now,
	}, nil
}

// ApplyBuy closes the listing as sold and frees the token's active slot.
func (m *Market) ApplyBuy(staged *StagedPurchase) {
	listing := m.listings[staged.ListingID]
	buyer := staged.Buyer
	closedAt := staged.ClosedAt
	listing.Status = domain.ListingStatusSold
	listing.Buyer = &buyer
	listing.FeePaid = staged.Fee
	listing.ClosedAt = &closedAt
	delete(m.activeByToken, listing.TokenID)
	m.activeCount--
	m.soldVolume += staged.Price
	m.feesCollected += staged.Fee
}

// StagedPriceUpdate is a validated price change on an active listing.
type StagedPriceUpdate struct {
	ListingID uint64
	TokenID   uint64
	Seller    domain.AccountID
	NewPrice  domain.Amount
}

// StageUpdatePrice validates repricing an active listing.
func (m *Market) StageUpdatePrice(caller domain.AccountID, listingID uint64, newPrice domain.Amount) (*StagedPriceUpdate, error) {
	listing, ok := m.listings[listingID]
	if !ok {
		return nil, domain.ErrUnknownListing
	}
	if !listing.Active() {
		return nil, domain.ErrListingInactive
	}
	if caller != listing.Seller {
		return nil, domain.ErrNotSeller
	}
	if newPrice <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	return &StagedPriceUpdate{
		ListingID: listingID,
		TokenID:   listing.TokenID,
		Seller:    listing.Seller,
		NewPrice:  newPrice,
	}, nil
}

// ApplyUpdatePrice rewrites the price in place.
func (m *Market) ApplyUpdatePrice(staged *StagedPriceUpdate) {
	m.listings[staged.ListingID].Price = staged.NewPrice
}

// StagedCancellation is a validated listing cancellation.
type StagedCancellation struct {
	ListingID uint64
	TokenID   uint64
	Seller    domain.AccountID
	Price     domain.Amount
	ClosedAt  time.Time
	// Forced marks an operator emergency return rather than a seller
	// cancellation.
	Forced bool
}

// StageCancel validates the seller withdrawing their own listing.
func (m *Market) StageCancel(caller domain.AccountID, listingID uint64, now time.Time) (*StagedCancellation, error) {
	listing, ok := m.listings[listingID]
	if !ok {
		return nil, domain.ErrUnknownListing
	}
	if !listing.Active() {
		return nil, domain.ErrListingInactive
	}
	if caller != listing.Seller {
		return nil, domain.ErrNotSeller
	}

	return &StagedCancellation{
		ListingID: listingID,
		TokenID:   listing.TokenID,
		Seller:    listing.Seller,
		Price:     listing.Price,
		ClosedAt:  now,
	}, nil
}

// StageEmergencyReturn validates an operator forcing an active listing
// closed. The seller check is skipped; the token still goes back to the
// seller, never to the operator.
func (m *Market) StageEmergencyReturn(listingID uint64, now time.Time) (*StagedCancellation, error) {
	listing, ok := m.listings[listingID]
	if !ok {
		return nil, domain.ErrUnknownListing
	}
	if !listing.Active() {
		return nil, domain.ErrListingInactive
	}

	return &StagedCancellation{
		ListingID: listingID,
		TokenID:   listing.TokenID,
		Seller:    listing.Seller,
		Price:     listing.Price,
		ClosedAt:  now,
		Forced:    true,
	}, nil
}

// ApplyCancel closes the listing as cancelled and frees the token's active
// slot.
func (m *Market) ApplyCancel(staged *StagedCancellation) {
	listing := m.listings[staged.ListingID]
	closedAt := staged.ClosedAt
	listing.Status = domain.ListingStatusCancelled
	listing.ClosedAt = &closedAt
	delete(m.activeByToken, listing.TokenID)
	m.activeCount--
}

// Get returns a copy of the listing record.
func (m *Market) Get(listingID uint64) (domain.Listing, error) {
	listing, ok := m.listings[listingID]
	if !ok {
		return domain.Listing{}, domain.ErrUnknownListing
	}
	return *listing, nil
}

// ActiveListingFor returns the open listing holding tokenID in escrow, if
// any.
func (m *Market) ActiveListingFor(tokenID uint64) (domain.Listing, bool) {
	id, ok := m.activeByToken[tokenID]
	if !ok {
		return domain.Listing{}, false
	}
	return *m.listings[id], true
}

// ActiveListings returns copies of all open listings in creation order.
func (m *Market) ActiveListings() []domain.Listing {
	out := make([]domain.Listing, 0, m.activeCount)
	for id := uint64(1); id <= m.seq.Last(); id++ {
		if listing, ok := m.listings[id]; ok && listing.Active() {
			out = append(out, *listing)
		}
	}
	return out
}

// Stats returns aggregate listing counts, total sold volume and fees taken.
func (m *Market) Stats() domain.MarketStats {
	return domain.MarketStats{
		Total:         len(m.listings),
		Active:        m.activeCount,
		SoldVolume:    m.soldVolume,
		FeesCollected: m.feesCollected,
	}
}

// FeeBps returns the current platform fee in basis points.
func (m *Market) FeeBps() int {
	return m.feeBps
}

// SetFeeBps changes the platform fee for future sales. Listings created
// earlier still pay the fee in force at sale time.
func (m *Market) SetFeeBps(bps int) error {
	if bps < 0 || bps > MaxFeeBps {
		return domain.ErrInvalidFee
	}
	m.feeBps = bps
	return nil
}

// PlatformAccount returns the account collecting platform fees.
func (m *Market) PlatformAccount() domain.AccountID {
	return m.platformAccount
}

// Restore rebuilds market state from persisted listings during rehydration.
func (m *Market) Restore(listings []domain.Listing, feeBps int) {
	var last uint64
	for i := range listings {
		listing := listings[i]
		m.listings[listing.ID] = &listing
		if listing.Active() {
			m.activeByToken[listing.TokenID] = listing.ID
			m.activeCount++
		}
		if listing.Status == domain.ListingStatusSold {
			m.soldVolume += listing.Price
			m.feesCollected += listing.FeePaid
		}
		if listing.ID > last {
			last = listing.ID
		}
	}
	m.seq.Restore(last)
	if feeBps >= 0 {
		m.feeBps = feeBps
	}
}
