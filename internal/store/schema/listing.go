package schema

import (
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// Listing persists one marketplace offer, including terminal ones.
type Listing struct {
	ID        uint64     `gorm:"column:id;primaryKey"`
	TokenID   uint64     `gorm:"column:token_id;not null;index"`
	Seller    string     `gorm:"column:seller;type:varchar(128);not null;index"`
	Buyer     *string    `gorm:"column:buyer;type:varchar(128)"`
	Price     int64      `gorm:"column:price;not null"`
	FeePaid   int64      `gorm:"column:fee_paid;not null"`
	Status    string     `gorm:"column:status;type:varchar(16);not null;index"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	ClosedAt  *time.Time `gorm:"column:closed_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the gorm default.
func (Listing) TableName() string {
	return "listings"
}

// ToDomain converts the row to the domain type.
func (l *Listing) ToDomain() domain.Listing {
	var buyer *domain.AccountID
	if l.Buyer != nil {
		b := domain.AccountID(*l.Buyer)
		buyer = &b
	}
	return domain.Listing{
		ID:        l.ID,
		TokenID:   l.TokenID,
		Seller:    domain.AccountID(l.Seller),
		Buyer:     buyer,
		Price:     domain.Amount(l.Price),
		FeePaid:   domain.Amount(l.FeePaid),
		Status:    domain.ListingStatus(l.Status),
		CreatedAt: l.CreatedAt,
		ClosedAt:  l.ClosedAt,
	}
}

// ListingFromDomain converts the domain type to a row.
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
		Price:     int64(l.Price),
		FeePaid:   int64(l.FeePaid),
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt,
		ClosedAt:  l.ClosedAt,
	}
}
