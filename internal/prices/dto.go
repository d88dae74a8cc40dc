package prices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// PriceRecordDTO is the API projection of a price record.
type PriceRecordDTO struct {
	ID            uuid.UUID         `json:"id"`
	ItemID        uuid.UUID         `json:"item_id"`
	ChannelID     uuid.UUID         `json:"channel_id"`
	CompanyID     *uuid.UUID        `json:"company_id,omitempty"`
	MRP           decimal.Decimal   `json:"mrp"`
	MOP           decimal.Decimal   `json:"mop"`
	SellingPrice  decimal.Decimal   `json:"selling_price"`
	EffectiveFrom time.Time         `json:"effective_from"`
	EffectiveTo   *time.Time        `json:"effective_to,omitempty"`
	Status        enums.PriceStatus `json:"status"`
	Approver      *string           `json:"approver,omitempty"`
	ApprovedAt    *time.Time        `json:"approved_at,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// FromModel maps a price record row into its DTO.
func FromModel(m *models.PriceRecord) *PriceRecordDTO {
	if m == nil {
		return nil
	}
	return &PriceRecordDTO{
		ID:            m.ID,
		ItemID:        m.ItemID,
		ChannelID:     m.ChannelID,
		CompanyID:     m.CompanyID,
		MRP:           m.MRP,
		MOP:           m.MOP,
		SellingPrice:  m.SellingPrice,
		EffectiveFrom: m.EffectiveFrom,
		EffectiveTo:   m.EffectiveTo,
		Status:        m.Status,
		Approver:      m.Approver,
		ApprovedAt:    m.ApprovedAt,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
}
