package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// CommercialTag annotates an item row in the resolution grid
// (e.g. "Clearance", "Hero SKU").
type CommercialTag struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	CompanyID     *uuid.UUID      `gorm:"column:company_id;type:uuid"`
	Tag           string          `gorm:"column:tag;not null"`
	Reason        *string         `gorm:"column:reason"`
	EffectiveFrom *time.Time      `gorm:"column:effective_from;type:date"`
	EffectiveTo   *time.Time      `gorm:"column:effective_to;type:date"`
	Status        enums.TagStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
