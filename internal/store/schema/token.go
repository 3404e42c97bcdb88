package schema

import (
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// Token persists one minted carbon credit.
type Token struct {
	ID               uint64    `gorm:"column:id;primaryKey"`
	Owner            string    `gorm:"column:owner;type:varchar(128);not null;index"`
	CarbonValue      int64     `gorm:"column:carbon_value;not null"`
	GreeneryPct      int       `gorm:"column:greenery_pct;not null"`
	Location         string    `gorm:"column:location;type:text"`
	ImageFingerprint string    `gorm:"column:image_fingerprint;type:varchar(256)"`
	MintedAt         time.Time `gorm:"column:minted_at;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the gorm default.
func (Token) TableName() string {
	return "tokens"
}

// ToDomain converts the row to the domain type.
func (t *Token) ToDomain() domain.Token {
	return domain.Token{
		ID:               t.ID,
		Owner:            domain.AccountID(t.Owner),
		CarbonValue:      domain.Amount(t.CarbonValue),
		GreeneryPct:      t.GreeneryPct,
		Location:         t.Location,
		ImageFingerprint: t.ImageFingerprint,
		MintedAt:         t.MintedAt,
	}
}

// TokenFromDomain converts the domain type to a row.
func TokenFromDomain(t domain.Token) Token {
	return Token{
		ID:               t.ID,
		Owner:            string(t.Owner),
		CarbonValue:      int64(t.CarbonValue),
		GreeneryPct:      t.GreeneryPct,
		Location:         t.Location,
		ImageFingerprint: t.ImageFingerprint,
		MintedAt:         t.MintedAt,
	}
}
