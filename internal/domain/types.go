package domain

import (
	"fmt"
	"math"
	"time"
)

// AccountID is an opaque account reference. The engine never interprets it;
// upstream systems may put wallet addresses or internal user IDs here.
type AccountID string

// Valid checks that an account reference is usable as a party to an operation.
func (a AccountID) Valid() bool {
	return a != ""
}

// Amount is a monetary or carbon quantity in micro-units (1e-6 of the base
// unit). All engine arithmetic is integer-only; conversion from decimal
// values happens at the API boundary.
type Amount int64

// MicroUnit is the number of Amount units in one base unit.
const MicroUnit = 1_000_000

// AmountFromFloat converts a decimal base-unit value to micro-units,
// rounding to the nearest micro-unit. Truncation would turn values the
// float format cannot represent exactly, like 0.29, into off-by-one
// micro-unit amounts.
func AmountFromFloat(v float64) Amount {
	return Amount(math.Round(v * MicroUnit))
}

// Float converts an Amount back to a decimal base-unit value for display.
func (a Amount) Float() float64 {
	return float64(a) / MicroUnit
}

func (a Amount) String() string {
	return fmt.Sprintf("%d.%06d", a/MicroUnit, a%MicroUnit)
}

// Role is a capability attached to an account. Gated operations check roles
// through a single shared helper instead of per-operation access lists.
type Role string

const (
	// RoleMinter may mint tokens directly on the ledger
	RoleMinter Role = "minter"
	// RoleOperator may pause the ledger and force-return escrowed tokens
	RoleOperator Role = "operator"
	// RoleAdmin may change engine configuration and override submissions
	RoleAdmin Role = "admin"
)

// RoleSet is the capability set attached to one account.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from a list of roles.
func NewRoleSet(roles ...Role) RoleSet {
	rs := make(RoleSet, len(roles))
	for _, r := range roles {
		rs[r] = struct{}{}
	}
	return rs
}

// Has reports whether the set contains the given role.
func (rs RoleSet) Has(role Role) bool {
	_, ok := rs[role]
	return ok
}

// Grant adds a role to the set.
func (rs RoleSet) Grant(role Role) {
	rs[role] = struct{}{}
}

// Revoke removes a role from the set.
func (rs RoleSet) Revoke(role Role) {
	delete(rs, role)
}

// Submission is one scored environmental observation. Records are append-only;
// verified and tokenized flip at most once each through the registry's own
// operations (admin override may rewrite the score fields, never tokenized).
type Submission struct {
	ID               uint64
	Owner            AccountID
	ImageFingerprint string
	GreeneryPct      int
	CarbonValue      Amount
	Location         string
	Verified         bool
	Tokenized        bool
	TokenID          *uint64
	CreatedAt        time.Time
}

// Token is a unique, non-divisible carbon credit. Metadata is immutable after
// mint; only ownership changes, and only through ledger-sanctioned transfers.
type Token struct {
	ID               uint64
	Owner            AccountID
	CarbonValue      Amount
	GreeneryPct      int
	Location         string
	ImageFingerprint string
	MintedAt         time.Time
}

// ListingStatus tracks the listing state machine: Active -> (Sold | Cancelled).
// Terminal listings are retained for history and never mutated again.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusCancelled ListingStatus = "cancelled"
)

// Listing is an offer to sell one token at a fixed price, backed by custodial
// escrow: the marketplace holds the token from creation until sale or
// cancellation.
type Listing struct {
	ID        uint64
	TokenID   uint64
	Seller    AccountID
	Buyer     *AccountID
	Price     Amount
	FeePaid   Amount
	Status    ListingStatus
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// Active reports whether the listing is open for purchase.
func (l Listing) Active() bool {
	return l.Status == ListingStatusActive
}

// RegistryStats is the aggregate view over all submissions.
type RegistryStats struct {
	Total       int    `json:"total"`
	Verified    int    `json:"verified"`
	Tokenized   int    `json:"tokenized"`
	CarbonTotal Amount `json:"carbon_total"`
}

// MarketStats is the aggregate view over all listings. SoldVolume and
// FeesCollected sum terminal sold listings only.
type MarketStats struct {
	Total         int    `json:"total"`
	Active        int    `json:"active"`
	SoldVolume    Amount `json:"sold_volume"`
	FeesCollected Amount `json:"fees_collected"`
}
