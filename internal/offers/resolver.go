package offers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// Offer is the resolver's input projection: the fields of an offer record
// that matter for picking a winner. Callers pre-filter to currently
// applicable offers; the resolver itself is pure and clock-free.
type Offer struct {
	ID        uuid.UUID
	OfferType string
	ValueType enums.OfferValueType
	Value     decimal.Decimal
	Priority  int
	Stackable bool
	CreatedAt int64
}

// Resolution is the resolver's output. Price is set only when a price
// override wins; otherwise the caller applies the percent/amount totals to
// its own base price. The resolver never multiplies, so it stays free of
// currency and rounding policy.
type Resolution struct {
	Price        *decimal.Decimal
	Label        string
	PercentTotal decimal.Decimal
	AmountTotal  decimal.Decimal
	AppliedIDs   []uuid.UUID
	Ambiguous    bool
}

// IsEmpty reports whether no offer applied.
func (r Resolution) IsEmpty() bool {
	return r.Price == nil && r.PercentTotal.IsZero() && r.AmountTotal.IsZero()
}

// Resolve reduces a set of applicable offers to one effective discount or
// override:
//
//  1. Any price override beats everything; the highest-priority override
//     wins outright. Ties on priority break by earliest creation then lowest
//     id, and are flagged Ambiguous.
//  2. Otherwise stackable offers sum, and the single highest-priority
//     non-stackable offer joins the matching total.
//
// Resolve(nil) returns an empty Resolution.
func Resolve(offers []Offer) Resolution {
	if len(offers) == 0 {
		return Resolution{}
	}

	sorted := make([]Offer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	for i, offer := range sorted {
		if offer.ValueType != enums.OfferValuePriceOverride {
			continue
		}
		price := offer.Value
		res := Resolution{
			Price:      &price,
			Label:      fmt.Sprintf("Override ₹%s", price.String()),
			AppliedIDs: []uuid.UUID{offer.ID},
		}
		for _, other := range sorted[i+1:] {
			if other.ValueType == enums.OfferValuePriceOverride && other.Priority == offer.Priority {
				res.Ambiguous = true
				break
			}
		}
		return res
	}

	var res Resolution
	tookNonStackable := false
	for _, offer := range sorted {
		if !offer.Stackable {
			if tookNonStackable {
				continue
			}
			tookNonStackable = true
		}
		switch offer.ValueType {
		case enums.OfferValuePercentage:
			res.PercentTotal = res.PercentTotal.Add(offer.Value)
		case enums.OfferValueAmount:
			res.AmountTotal = res.AmountTotal.Add(offer.Value)
		default:
			continue
		}
		res.AppliedIDs = append(res.AppliedIDs, offer.ID)
	}

	var parts []string
	if res.PercentTotal.IsPositive() {
		parts = append(parts, fmt.Sprintf("%s%% off", res.PercentTotal.String()))
	}
	if res.AmountTotal.IsPositive() {
		parts = append(parts, fmt.Sprintf("₹%s off", res.AmountTotal.String()))
	}
	res.Label = strings.Join(parts, " + ")
	return res
}
