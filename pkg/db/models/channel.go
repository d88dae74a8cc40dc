package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a sales or buying route a price or offer record is scoped to.
// Static reference data owned by the channel registry.
type Channel struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	IsBuying    bool      `gorm:"column:is_buying;not null;default:false"`
	Disabled    bool      `gorm:"column:disabled;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
