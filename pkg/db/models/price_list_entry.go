package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceListEntry is the downstream sync artifact: the host catalog's own
// price-list representation, mirrored here so transactions pick prices up
// without a custom hook. SourcePriceID back-references the authoritative
// PriceRecord.
type PriceListEntry struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	ChannelID     uuid.UUID       `gorm:"column:channel_id;type:uuid;not null"`
	Rate          decimal.Decimal `gorm:"column:rate;type:numeric(12,2);not null"`
	ValidFrom     time.Time       `gorm:"column:valid_from;type:date;not null"`
	ValidTo       *time.Time      `gorm:"column:valid_to;type:date"`
	Buying        bool            `gorm:"column:buying;not null;default:false"`
	Disabled      bool            `gorm:"column:disabled;not null;default:false"`
	SourcePriceID uuid.UUID       `gorm:"column:source_price_id;type:uuid;not null;index"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
