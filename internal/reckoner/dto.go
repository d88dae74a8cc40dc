package reckoner

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/internal/catalog"
	"github.com/gostackhq/reckoner-backend/internal/channels"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

// ActivePriceDTO answers "what does this item cost on this channel today".
// FinalPriceHint is advisory: the resolved offer applied to the base selling
// price, clamped at zero.
type ActivePriceDTO struct {
	Found          bool             `json:"found"`
	ItemCode       string           `json:"item_code"`
	MRP            *decimal.Decimal `json:"mrp,omitempty"`
	MOP            *decimal.Decimal `json:"mop,omitempty"`
	BasePrice      *decimal.Decimal `json:"base_price,omitempty"`
	FinalPriceHint *decimal.Decimal `json:"final_price_hint,omitempty"`
	OfferLabel     string           `json:"offer_label,omitempty"`
	HasBankOffer   bool             `json:"has_bank_offer"`
	HasBrandOffer  bool             `json:"has_brand_offer"`
}

// GridCell is one channel's resolved pricing for a grid row.
type GridCell struct {
	MRP            decimal.Decimal  `json:"mrp"`
	MOP            decimal.Decimal  `json:"mop"`
	SellingPrice   decimal.Decimal  `json:"selling_price"`
	FinalPriceHint *decimal.Decimal `json:"final_price_hint,omitempty"`
	OfferLabel     string           `json:"offer_label,omitempty"`
	HasBankOffer   bool             `json:"has_bank_offer"`
	HasBrandOffer  bool             `json:"has_brand_offer"`
}

// GridRow is one item (or collapsed variant group) in the resolution grid.
type GridRow struct {
	ItemID       uuid.UUID                 `json:"item_id"`
	ItemCode     string                    `json:"item_code"`
	ItemName     string                    `json:"item_name"`
	VariantCount int                       `json:"variant_count"`
	MemberCodes  []string                  `json:"member_codes,omitempty"`
	Tags         []string                  `json:"tags,omitempty"`
	Cells        map[uuid.UUID]*GridCell   `json:"cells"`
}

// Grid is the bulk resolution result.
type Grid struct {
	Rows     []GridRow             `json:"rows"`
	Channels []channels.ChannelDTO `json:"channels"`
	Total    int64                 `json:"total"`
}

// GridFilters narrows the grid query.
type GridFilters struct {
	Items         catalog.ItemFilters
	ChannelID     *uuid.UUID
	CompanyID     *uuid.UUID
	AsOf          time.Time
	GroupVariants bool
	Page          pagination.Page
}

// PropagationResult reports a save-with-propagation outcome.
type PropagationResult struct {
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	TargetItems []string `json:"target_items"`
}

// ExportResult reports a grid export outcome.
type ExportResult struct {
	Rows      int  `json:"rows"`
	Truncated bool `json:"truncated"`
}
