package schema

import "time"

// Config keys persisted across restarts.
const (
	ConfigKeyThresholdPct   = "verification_threshold_pct"
	ConfigKeyPlatformFeeBps = "platform_fee_bps"
	ConfigKeyPaused         = "ledger_paused"
	ConfigKeyBaseLocator    = "metadata_base_locator"
)

// EngineConfig is one persisted configuration value.
type EngineConfig struct {
	Key       string    `gorm:"column:key;type:varchar(64);primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the gorm default.
func (EngineConfig) TableName() string {
	return "engine_config"
}
