package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies one state transition observable by external
// subscribers such as indexers or UIs.
type EventType string

const (
	EventSubmissionRegistered EventType = "submission.registered"
	EventSubmissionVerified   EventType = "submission.verified"
	EventSubmissionTokenized  EventType = "submission.tokenized"
	EventTokenMinted          EventType = "token.minted"
	EventListingCreated       EventType = "listing.created"
	EventListingUpdated       EventType = "listing.updated"
	EventListingCancelled     EventType = "listing.cancelled"
	EventTokenSold            EventType = "token.sold"
	EventThresholdUpdated     EventType = "config.threshold_updated"
	EventPlatformFeeUpdated   EventType = "config.platform_fee_updated"
)

// Event is one committed state transition. IDs are ULIDs minted at commit
// time under the engine's write lock, so lexicographic ID order equals
// commit order.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent stamps a transition with a ULID and timestamp.
func NewEvent(eventType EventType, at time.Time, data any) Event {
	return Event{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}
}

// SubmissionEventData carries the submission fields events expose.
type SubmissionEventData struct {
	SubmissionID uint64    `json:"submission_id"`
	Owner        AccountID `json:"owner"`
	Fingerprint  string    `json:"image_fingerprint,omitempty"`
	GreeneryPct  int       `json:"greenery_pct"`
	CarbonValue  Amount    `json:"carbon_value"`
	Location     string    `json:"location,omitempty"`
	Verified     bool      `json:"verified"`
	TokenID      *uint64   `json:"token_id,omitempty"`
}

// TokenEventData carries the token fields events expose.
type TokenEventData struct {
	TokenID     uint64    `json:"token_id"`
	Owner       AccountID `json:"owner"`
	CarbonValue Amount    `json:"carbon_value"`
	GreeneryPct int       `json:"greenery_pct"`
	Location    string    `json:"location,omitempty"`
	Fingerprint string    `json:"image_fingerprint,omitempty"`
}

// ListingEventData carries the listing fields events expose. The funds
// split accompanies token.sold events as the settlement instruction.
type ListingEventData struct {
	ListingID      uint64        `json:"listing_id"`
	TokenID        uint64        `json:"token_id"`
	Seller         AccountID     `json:"seller"`
	Buyer          *AccountID    `json:"buyer,omitempty"`
	Price          Amount        `json:"price"`
	Status         ListingStatus `json:"status"`
	Fee            Amount        `json:"fee,omitempty"`
	SellerProceeds Amount        `json:"seller_proceeds,omitempty"`
}

// ConfigEventData carries configuration transitions.
type ConfigEventData struct {
	ThresholdPct   *int `json:"threshold_pct,omitempty"`
	PlatformFeeBps *int `json:"platform_fee_bps,omitempty"`
}
