package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// OfferRecord is a versioned, time-bounded promotion. Scope selects the
// target kind; ItemID/TargetRef carry the target itself. Nil ChannelID or
// CompanyID means the offer applies everywhere on that axis.
type OfferRecord struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string               `gorm:"column:name;not null"`
	Scope          enums.OfferScope     `gorm:"column:scope;not null;default:'item'"`
	ItemID         *uuid.UUID           `gorm:"column:item_id;type:uuid;index"`
	TargetRef      *string              `gorm:"column:target_ref"`
	ChannelID      *uuid.UUID           `gorm:"column:channel_id;type:uuid"`
	CompanyID      *uuid.UUID           `gorm:"column:company_id;type:uuid"`
	OfferType      string               `gorm:"column:offer_type;not null"`
	ValueType      enums.OfferValueType `gorm:"column:value_type;not null"`
	Value          decimal.Decimal      `gorm:"column:value;type:numeric(12,2);not null"`
	Priority       int                  `gorm:"column:priority;not null;default:1"`
	Stackable      bool                 `gorm:"column:stackable;not null;default:false"`
	StartsAt       time.Time            `gorm:"column:starts_at;not null"`
	EndsAt         time.Time            `gorm:"column:ends_at;not null"`
	Status         enums.OfferStatus    `gorm:"column:status;not null;default:'draft'"`
	ApprovalStatus enums.ApprovalStatus `gorm:"column:approval_status;not null;default:'pending'"`
	ApprovedBy     *string              `gorm:"column:approved_by"`
	ApprovedAt     *time.Time           `gorm:"column:approved_at"`
	MinBillAmount  *decimal.Decimal     `gorm:"column:min_bill_amount;type:numeric(12,2)"`
	BankName       *string              `gorm:"column:bank_name"`
	CardType       *string              `gorm:"column:card_type"`
	Notes          *string              `gorm:"column:notes"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
