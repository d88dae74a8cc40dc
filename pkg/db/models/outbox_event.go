package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent queues a pricing event for publication to Pub/Sub.
type OutboxEvent struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Topic        string     `gorm:"column:topic;not null"`
	Kind         string     `gorm:"column:kind;not null"`
	Payload      []byte     `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
	PublishedAt  *time.Time `gorm:"column:published_at;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
