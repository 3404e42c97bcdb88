package engine

import (
	"context"
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/ledger"
	"github.com/greenlink-eco/credit-engine/internal/market"
	"github.com/greenlink-eco/credit-engine/internal/settlement"
	"github.com/greenlink-eco/credit-engine/internal/store"
)

// CreateListing offers a token at a fixed price and moves it into
// marketplace custody. The listing row and the custody transfer commit
// together.
func (e *Engine) CreateListing(ctx context.Context, seller domain.AccountID, tokenID uint64, price domain.Amount) (domain.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stagedTransfer, err := e.ledger.StageTransfer(seller, market.EscrowAccount, tokenID)
	if err != nil {
		return domain.Listing{}, err
	}

	now := e.now()
	stagedListing, err := e.market.StageCreateListing(seller, tokenID, price, now)
	if err != nil {
		return domain.Listing{}, err
	}
	listing := stagedListing.Listing

	token, err := e.ledger.MetadataOf(tokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	token.Owner = market.EscrowAccount

	cs := &store.Changeset{
		Listings: []domain.Listing{listing},
		Tokens:   []domain.Token{token},
		Events: []domain.Event{
			domain.NewEvent(domain.EventListingCreated, now, listingData(listing)),
		},
	}
	if err := e.commit(ctx, "create_listing", cs, func() {
		e.ledger.ApplyTransfer(stagedTransfer)
		e.market.ApplyCreateListing(stagedListing)
	}); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// Buy purchases an active listing with an exact payment. Funds settlement,
// the custody release and the listing close are one atomic commit: an
// uncovered buyer or a failed persist leaves everything untouched.
func (e *Engine) Buy(ctx context.Context, buyer domain.AccountID, listingID uint64, payment domain.Amount) (domain.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	stagedBuy, err := e.market.StageBuy(buyer, listingID, payment, now)
	if err != nil {
		return domain.Listing{}, err
	}

	stagedTransfer, err := e.ledger.StageTransfer(market.EscrowAccount, buyer, stagedBuy.TokenID)
	if err != nil {
		return domain.Listing{}, err
	}

	prepared, err := e.settler.Prepare([]settlement.Transfer{
		{From: buyer, To: stagedBuy.Seller, Amount: stagedBuy.SellerProceeds},
		{From: buyer, To: e.market.PlatformAccount(), Amount: stagedBuy.Fee},
	})
	if err != nil {
		return domain.Listing{}, err
	}

	listing, err := e.market.Get(listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	listing.Status = domain.ListingStatusSold
	listing.Buyer = &buyer
	listing.FeePaid = stagedBuy.Fee
	listing.ClosedAt = &now

	token, err := e.ledger.MetadataOf(stagedBuy.TokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	token.Owner = buyer

	data := listingData(listing)
	data.Fee = stagedBuy.Fee
	data.SellerProceeds = stagedBuy.SellerProceeds

	cs := &store.Changeset{
		Listings: []domain.Listing{listing},
		Tokens:   []domain.Token{token},
		Events: []domain.Event{
			domain.NewEvent(domain.EventTokenSold, now, data),
		},
	}
	if err := e.commit(ctx, "buy", cs, func() {
		e.market.ApplyBuy(stagedBuy)
		e.ledger.ApplyTransfer(stagedTransfer)
		prepared.Commit()
	}); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// UpdateListingPrice reprices an active listing. Seller only.
func (e *Engine) UpdateListingPrice(ctx context.Context, caller domain.AccountID, listingID uint64, newPrice domain.Amount) (domain.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	staged, err := e.market.StageUpdatePrice(caller, listingID, newPrice)
	if err != nil {
		return domain.Listing{}, err
	}

	listing, err := e.market.Get(listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	listing.Price = newPrice

	cs := &store.Changeset{
		Listings: []domain.Listing{listing},
		Events: []domain.Event{
			domain.NewEvent(domain.EventListingUpdated, e.now(), listingData(listing)),
		},
	}
	if err := e.commit(ctx, "update_listing_price", cs, func() {
		e.market.ApplyUpdatePrice(staged)
	}); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// CancelListing withdraws an active listing and returns the token from
// custody to the seller. Seller only.
func (e *Engine) CancelListing(ctx context.Context, caller domain.AccountID, listingID uint64) (domain.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	staged, err := e.market.StageCancel(caller, listingID, now)
	if err != nil {
		return domain.Listing{}, err
	}
	return e.closeListing(ctx, staged, now)
}

// EmergencyReturnListing force-closes an active listing and returns the
// token to its seller, even while the ledger is paused. Requires
// RoleOperator.
func (e *Engine) EmergencyReturnListing(ctx context.Context, caller domain.AccountID, listingID uint64) (domain.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleOperator); err != nil {
		return domain.Listing{}, err
	}

	now := e.now()
	staged, err := e.market.StageEmergencyReturn(listingID, now)
	if err != nil {
		return domain.Listing{}, err
	}
	return e.closeListing(ctx, staged, now)
}

// closeListing commits a cancellation: custody transfer back to the seller
// plus the terminal listing row. Caller holds the write lock.
func (e *Engine) closeListing(ctx context.Context, staged *market.StagedCancellation, now time.Time) (domain.Listing, error) {
	var stagedTransfer *ledger.StagedTransfer
	var err error
	if staged.Forced {
		stagedTransfer, err = e.ledger.StageForcedTransfer(market.EscrowAccount, staged.Seller, staged.TokenID)
	} else {
		stagedTransfer, err = e.ledger.StageTransfer(market.EscrowAccount, staged.Seller, staged.TokenID)
	}
	if err != nil {
		return domain.Listing{}, err
	}

	listing, err := e.market.Get(staged.ListingID)
	if err != nil {
		return domain.Listing{}, err
	}
	listing.Status = domain.ListingStatusCancelled
	listing.ClosedAt = &now

	token, err := e.ledger.MetadataOf(staged.TokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	token.Owner = staged.Seller

	op := "cancel_listing"
	if staged.Forced {
		op = "emergency_return_listing"
	}
	cs := &store.Changeset{
		Listings: []domain.Listing{listing},
		Tokens:   []domain.Token{token},
		Events: []domain.Event{
			domain.NewEvent(domain.EventListingCancelled, now, listingData(listing)),
		},
	}
	if err := e.commit(ctx, op, cs, func() {
		e.market.ApplyCancel(staged)
		e.ledger.ApplyTransfer(stagedTransfer)
	}); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// Listing returns one listing record, active or terminal.
func (e *Engine) Listing(listingID uint64) (domain.Listing, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.market.Get(listingID)
}

// ActiveListings returns all open listings in creation order.
func (e *Engine) ActiveListings() []domain.Listing {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.market.ActiveListings()
}

// MarketStats returns aggregate listing counts and volumes.
func (e *Engine) MarketStats() domain.MarketStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.market.Stats()
}

// PlatformFeeBps returns the current platform fee in basis points.
func (e *Engine) PlatformFeeBps() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.market.FeeBps()
}

func listingData(listing domain.Listing) domain.ListingEventData {
	return domain.ListingEventData{
		ListingID: listing.ID,
		TokenID:   listing.TokenID,
		Seller:    listing.Seller,
		Buyer:     listing.Buyer,
		Price:     listing.Price,
		Status:    listing.Status,
	}
}
