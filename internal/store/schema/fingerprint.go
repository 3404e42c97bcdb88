package schema

import "time"

// FingerprintIndex is the append-only uniqueness index over image
// fingerprints. Rows are never updated or deleted so duplicate detection
// survives restarts and any future submission rewrites.
type FingerprintIndex struct {
	Fingerprint  string    `gorm:"column:fingerprint;type:varchar(256);primaryKey"`
	SubmissionID uint64    `gorm:"column:submission_id;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the gorm default.
func (FingerprintIndex) TableName() string {
	return "fingerprint_index"
}
