package schema

import (
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// Submission persists one scored observation.
type Submission struct {
	ID               uint64    `gorm:"column:id;primaryKey"`
	Owner            string    `gorm:"column:owner;type:varchar(128);not null;index"`
	ImageFingerprint string    `gorm:"column:image_fingerprint;type:varchar(256);not null"`
	GreeneryPct      int       `gorm:"column:greenery_pct;not null"`
	CarbonValue      int64     `gorm:"column:carbon_value;not null"`
	Location         string    `gorm:"column:location;type:text"`
	Verified         bool      `gorm:"column:verified;not null"`
	Tokenized        bool      `gorm:"column:tokenized;not null"`
	TokenID          *uint64   `gorm:"column:token_id"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the gorm default.
func (Submission) TableName() string {
	return "submissions"
}

// ToDomain converts the row to the domain type.
func (s *Submission) ToDomain() domain.Submission {
	return domain.Submission{
		ID:               s.ID,
		Owner:            domain.AccountID(s.Owner),
		ImageFingerprint: s.ImageFingerprint,
		GreeneryPct:      s.GreeneryPct,
		CarbonValue:      domain.Amount(s.CarbonValue),
		Location:         s.Location,
		Verified:         s.Verified,
		Tokenized:        s.Tokenized,
		TokenID:          s.TokenID,
		CreatedAt:        s.CreatedAt,
	}
}

// SubmissionFromDomain converts the domain type to a row.
func SubmissionFromDomain(s domain.Submission) Submission {
	return Submission{
		ID:               s.ID,
		Owner:            string(s.Owner),
		ImageFingerprint: s.ImageFingerprint,
		GreeneryPct:      s.GreeneryPct,
		CarbonValue:      int64(s.CarbonValue),
		Location:         s.Location,
		Verified:         s.Verified,
		Tokenized:        s.Tokenized,
		TokenID:          s.TokenID,
		CreatedAt:        s.CreatedAt,
	}
}
