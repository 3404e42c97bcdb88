// Package dto defines the REST wire types. Monetary and carbon quantities
// travel as decimal base units and convert to micro-unit integers at this
// boundary.
package dto

import (
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// RegisterSubmissionRequest creates a submission.
type RegisterSubmissionRequest struct {
	Owner            string  `json:"owner" binding:"required"`
	ImageFingerprint string  `json:"image_fingerprint" binding:"required"`
	GreeneryPct      int     `json:"greenery_pct"`
	CarbonValue      float64 `json:"carbon_value" binding:"required"`
	Location         string  `json:"location"`
}

// TokenizeRequest mints the token for a verified submission.
type TokenizeRequest struct {
	Caller string `json:"caller"`
}

// MintRequest mints one token directly.
type MintRequest struct {
	Caller           string  `json:"caller"`
	Owner            string  `json:"owner" binding:"required"`
	CarbonValue      float64 `json:"carbon_value" binding:"required"`
	GreeneryPct      int     `json:"greenery_pct"`
	Location         string  `json:"location"`
	ImageFingerprint string  `json:"image_fingerprint"`
}

// BatchMintRequest mints several tokens atomically from parallel arrays.
type BatchMintRequest struct {
	Caller            string    `json:"caller"`
	Owners            []string  `json:"owners" binding:"required"`
	CarbonValues      []float64 `json:"carbon_values" binding:"required"`
	GreeneryPcts      []int     `json:"greenery_pcts" binding:"required"`
	Locations         []string  `json:"locations" binding:"required"`
	ImageFingerprints []string  `json:"image_fingerprints" binding:"required"`
}

// TransferRequest moves a token to another account.
type TransferRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to" binding:"required"`
}

// CreateListingRequest lists a token for sale.
type CreateListingRequest struct {
	Seller  string  `json:"seller"`
	TokenID uint64  `json:"token_id" binding:"required"`
	Price   float64 `json:"price" binding:"required"`
}

// BuyRequest purchases a listing with an exact payment.
type BuyRequest struct {
	Buyer   string  `json:"buyer"`
	Payment float64 `json:"payment" binding:"required"`
}

// UpdatePriceRequest reprices an active listing.
type UpdatePriceRequest struct {
	Caller string  `json:"caller"`
	Price  float64 `json:"price" binding:"required"`
}

// CallerRequest carries only the acting account.
type CallerRequest struct {
	Caller string `json:"caller"`
}

// ThresholdRequest changes the verification threshold.
type ThresholdRequest struct {
	Caller      string `json:"caller"`
	GreeneryPct int    `json:"greenery_pct"`
}

// FeeRequest changes the platform fee.
type FeeRequest struct {
	Caller string `json:"caller"`
	FeeBps int    `json:"fee_bps"`
}

// OverrideRequest rewrites a submission's score fields.
type OverrideRequest struct {
	Caller      string  `json:"caller"`
	GreeneryPct int     `json:"greenery_pct"`
	CarbonValue float64 `json:"carbon_value" binding:"required"`
}

// RoleRequest grants or revokes a capability.
type RoleRequest struct {
	Caller  string `json:"caller"`
	Account string `json:"account" binding:"required"`
	Role    string `json:"role" binding:"required"`
}

// BaseLocatorRequest changes the metadata base URI.
type BaseLocatorRequest struct {
	Caller string `json:"caller"`
	URI    string `json:"uri" binding:"required"`
}

// DepositRequest credits an account balance.
type DepositRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// Submission is the wire form of a submission record.
type Submission struct {
	ID               uint64    `json:"id"`
	Owner            string    `json:"owner"`
	ImageFingerprint string    `json:"image_fingerprint"`
	GreeneryPct      int       `json:"greenery_pct"`
	CarbonValue      float64   `json:"carbon_value"`
	Location         string    `json:"location,omitempty"`
	Verified         bool      `json:"verified"`
	Tokenized        bool      `json:"tokenized"`
	TokenID          *uint64   `json:"token_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// SubmissionFromDomain converts a submission for the wire.
func SubmissionFromDomain(s domain.Submission) Submission {
	return Submission{
		ID:               s.ID,
		Owner:            string(s.Owner),
		ImageFingerprint: s.ImageFingerprint,
		GreeneryPct:      s.GreeneryPct,
		CarbonValue:      s.CarbonValue.Float(),
		Location:         s.Location,
		Verified:         s.Verified,
		Tokenized:        s.Tokenized,
		TokenID:          s.TokenID,
		CreatedAt:        s.CreatedAt,
	}
}

// Token is the wire form of a token record.
type Token struct {
	ID               uint64    `json:"id"`
	Owner            string    `json:"owner"`
	CarbonValue      float64   `json:"carbon_value"`
	GreeneryPct      int       `json:"greenery_pct"`
	Location         string    `json:"location,omitempty"`
	ImageFingerprint string    `json:"image_fingerprint,omitempty"`
	MintedAt         time.Time `json:"minted_at"`
}

// TokenFromDomain converts a token for the wire.
func TokenFromDomain(t domain.Token) Token {
	return Token{
		ID:               t.ID,
		Owner:            string(t.Owner),
		CarbonValue:      t.CarbonValue.Float(),
		GreeneryPct:      t.GreeneryPct,
		Location:         t.Location,
		ImageFingerprint: t.ImageFingerprint,
		MintedAt:         t.MintedAt,
	}
}

// Listing is the wire form of a listing record.
type Listing struct {
	ID        uint64     `json:"id"`
	TokenID   uint64     `json:"token_id"`
	Seller    string     `json:"seller"`
	Buyer     *string    `json:"buyer,omitempty"`
	Price     float64    `json:"price"`
	FeePaid   float64    `json:"fee_paid"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// ListingFromDomain converts a listing for the wire.
func ListingFromDomain(l domain.Listing) Listing {
	var buyer *string
	if l.Buyer != nil {
		b := string(*l.Buyer)
		buyer = &b
	}
	return Listing{
		ID:        l.ID,
		TokenID:   l.TokenID,
		Seller:    string(l.Seller),
		Buyer:     buyer,
		Price:     l.Price.Float(),
		FeePaid:   l.FeePaid.Float(),
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt,
		ClosedAt:  l.ClosedAt,
	}
}

// RegistryStats is the wire form of registry aggregates.
type RegistryStats struct {
	Total       int     `json:"total"`
	Verified    int     `json:"verified"`
	Tokenized   int     `json:"tokenized"`
	CarbonTotal float64 `json:"carbon_total"`
}

// MarketStats is the wire form of market aggregates.
type MarketStats struct {
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	SoldVolume    float64 `json:"sold_volume"`
	FeesCollected float64 `json:"fees_collected"`
}

// Balance is the wire form of an account balance.
type Balance struct {
	Account string  `json:"account"`
	Balance float64 `json:"balance"`
}
