package model

import (
	"encoding/json"
	"time"
)

// StatusPending is the only status this service ever writes. Downstream
// consumers move records to other statuses through their own channel, so the
// column is a free-form string and is never validated on read.
const StatusPending = "pending"

// OrderRecord is the durable source of truth for an accepted order. Written
// exactly once at acceptance, never mutated afterwards except for the
// announced flag, never deleted.
type OrderRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Timestamp   time.Time `gorm:"not null"`
	Status      string    `gorm:"size:32;not null"`
	OrderData   string    `gorm:"type:jsonb;not null"`
	Announced   bool      `gorm:"not null;default:false"`
	AnnouncedAt *time.Time
}

func (OrderRecord) TableName() string { return "order_record" }

// OutboxEvent is the broker announcement derived from an OrderRecord. It is
// never persisted on its own; a failed publish is recovered by rebuilding it
// from the record.
type OutboxEvent struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Order     json.RawMessage `json:"order"`
}
