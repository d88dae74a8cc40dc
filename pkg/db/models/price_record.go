package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// PriceRecord is a versioned, time-ranged selling price for one
// (item, channel, company) key. CompanyID nil means "all companies",
// EffectiveTo nil means open-ended.
type PriceRecord struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID        uuid.UUID         `gorm:"column:item_id;type:uuid;not null;index:idx_price_key"`
	ChannelID     uuid.UUID         `gorm:"column:channel_id;type:uuid;not null;index:idx_price_key"`
	CompanyID     *uuid.UUID        `gorm:"column:company_id;type:uuid;index:idx_price_key"`
	MRP           decimal.Decimal   `gorm:"column:mrp;type:numeric(12,2);not null"`
	MOP           decimal.Decimal   `gorm:"column:mop;type:numeric(12,2);not null"`
	SellingPrice  decimal.Decimal   `gorm:"column:selling_price;type:numeric(12,2);not null"`
	EffectiveFrom time.Time         `gorm:"column:effective_from;type:date;not null"`
	EffectiveTo   *time.Time        `gorm:"column:effective_to;type:date"`
	Status        enums.PriceStatus `gorm:"column:status;not null;default:'draft'"`
	Approver      *string           `gorm:"column:approver"`
	ApprovedAt    *time.Time        `gorm:"column:approved_at"`
	Notes         *string           `gorm:"column:notes"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
