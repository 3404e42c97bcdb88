package schema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// EngineEvent journals one committed state transition. The ULID primary key
// sorts in commit order.
type EngineEvent struct {
	ID        string         `gorm:"column:id;type:varchar(26);primaryKey"`
	Type      string         `gorm:"column:type;type:varchar(64);not null;index"`
	Timestamp time.Time      `gorm:"column:timestamp;not null"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb"`
}

// TableName overrides the gorm default.
func (EngineEvent) TableName() string {
	return "engine_events"
}

// EventFromDomain converts the domain event to a journal row.
func EventFromDomain(e domain.Event) (EngineEvent, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return EngineEvent{}, err
	}
	return EngineEvent{
		ID:        e.ID,
		Type:      string(e.Type),
		Timestamp: e.Timestamp,
		Payload:   datatypes.JSON(payload),
	}, nil
}
