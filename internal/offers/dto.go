package offers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// OfferRecordDTO is the API projection of an offer record.
type OfferRecordDTO struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Scope          enums.OfferScope     `json:"scope"`
	ItemID         *uuid.UUID           `json:"item_id,omitempty"`
	TargetRef      *string              `json:"target_ref,omitempty"`
	ChannelID      *uuid.UUID           `json:"channel_id,omitempty"`
	CompanyID      *uuid.UUID           `json:"company_id,omitempty"`
	OfferType      string               `json:"offer_type"`
	ValueType      enums.OfferValueType `json:"value_type"`
	Value          decimal.Decimal      `json:"value"`
	Priority       int                  `json:"priority"`
	Stackable      bool                 `json:"stackable"`
	StartsAt       time.Time            `json:"starts_at"`
	EndsAt         time.Time            `json:"ends_at"`
	Status         enums.OfferStatus    `json:"status"`
	ApprovalStatus enums.ApprovalStatus `json:"approval_status"`
	ApprovedBy     *string              `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time           `json:"approved_at,omitempty"`
	MinBillAmount  *decimal.Decimal     `json:"min_bill_amount,omitempty"`
	BankName       *string              `json:"bank_name,omitempty"`
	CardType       *string              `json:"card_type,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// FromModel maps an offer row into its DTO.
func FromModel(m *models.OfferRecord) *OfferRecordDTO {
	if m == nil {
		return nil
	}
	return &OfferRecordDTO{
		ID:             m.ID,
		Name:           m.Name,
		Scope:          m.Scope,
		ItemID:         m.ItemID,
		TargetRef:      m.TargetRef,
		ChannelID:      m.ChannelID,
		CompanyID:      m.CompanyID,
		OfferType:      m.OfferType,
		ValueType:      m.ValueType,
		Value:          m.Value,
		Priority:       m.Priority,
		Stackable:      m.Stackable,
		StartsAt:       m.StartsAt,
		EndsAt:         m.EndsAt,
		Status:         m.Status,
		ApprovalStatus: m.ApprovalStatus,
		ApprovedBy:     m.ApprovedBy,
		ApprovedAt:     m.ApprovedAt,
		MinBillAmount:  m.MinBillAmount,
		BankName:       m.BankName,
		CardType:       m.CardType,
		CreatedAt:      m.CreatedAt,
	}
}

// ToResolverOffer projects an offer row into the resolver's input shape.
func ToResolverOffer(m *models.OfferRecord) Offer {
	return Offer{
		ID:        m.ID,
		OfferType: m.OfferType,
		ValueType: m.ValueType,
		Value:     m.Value,
		Priority:  m.Priority,
		Stackable: m.Stackable,
		CreatedAt: m.CreatedAt.UnixNano(),
	}
}
