package offers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

func pct(value int64, priority int, stackable bool) Offer {
	return Offer{
		ID:        uuid.New(),
		ValueType: enums.OfferValuePercentage,
		Value:     decimal.NewFromInt(value),
		Priority:  priority,
		Stackable: stackable,
	}
}

func amt(value int64, priority int, stackable bool) Offer {
	return Offer{
		ID:        uuid.New(),
		ValueType: enums.OfferValueAmount,
		Value:     decimal.NewFromInt(value),
		Priority:  priority,
		Stackable: stackable,
	}
}

func override(value int64, priority int) Offer {
	return Offer{
		ID:        uuid.New(),
		ValueType: enums.OfferValuePriceOverride,
		Value:     decimal.NewFromInt(value),
		Priority:  priority,
	}
}

func TestResolveEmpty(t *testing.T) {
	res := Resolve(nil)
	if !res.IsEmpty() || res.Label != "" {
		t.Fatalf("expected empty resolution, got %+v", res)
	}
}

func TestResolveOverrideBeatsEverything(t *testing.T) {
	a := amt(100, 1, false)
	o := override(999, 5)

	for _, order := range [][]Offer{{a, o}, {o, a}} {
		res := Resolve(order)
		if res.Price == nil || !res.Price.Equal(decimal.NewFromInt(999)) {
			t.Fatalf("expected override price 999, got %+v", res)
		}
		if res.Label != "Override ₹999" {
			t.Fatalf("unexpected label %q", res.Label)
		}
		if res.Ambiguous {
			t.Fatal("single override must not be ambiguous")
		}
	}
}

func TestResolveOverridePicksHighestPriority(t *testing.T) {
	low := override(500, 1)
	high := override(999, 5)
	res := Resolve([]Offer{low, high})
	if res.Price == nil || !res.Price.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected highest-priority override, got %+v", res)
	}
}

func TestResolveOverrideTieFlaggedAmbiguous(t *testing.T) {
	a := override(500, 5)
	a.CreatedAt = 1
	b := override(999, 5)
	b.CreatedAt = 2

	res := Resolve([]Offer{b, a})
	if !res.Ambiguous {
		t.Fatal("equal-priority overrides must be flagged ambiguous")
	}
	// Deterministic tie-break: earliest created wins regardless of input order.
	if res.Price == nil || !res.Price.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected earliest-created override to win, got %+v", res)
	}
}

func TestResolveStackablePercentagesSum(t *testing.T) {
	res := Resolve([]Offer{pct(10, 1, true), pct(5, 2, true)})
	if !res.PercentTotal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected 15%% total, got %s", res.PercentTotal)
	}
	if res.Label != "15% off" {
		t.Fatalf("unexpected label %q", res.Label)
	}
}

func TestResolveFirstNonStackableWins(t *testing.T) {
	res := Resolve([]Offer{pct(10, 2, false), pct(5, 1, false)})
	if !res.PercentTotal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected only highest-priority non-stackable, got %s", res.PercentTotal)
	}
	if len(res.AppliedIDs) != 1 {
		t.Fatalf("expected single applied offer, got %d", len(res.AppliedIDs))
	}
}

func TestResolveMixedBuckets(t *testing.T) {
	res := Resolve([]Offer{pct(10, 3, true), amt(250, 2, true), amt(100, 5, false)})
	if !res.PercentTotal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected percent total %s", res.PercentTotal)
	}
	if !res.AmountTotal.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("unexpected amount total %s", res.AmountTotal)
	}
	if res.Label != "10% off + ₹350 off" {
		t.Fatalf("unexpected label %q", res.Label)
	}
	if res.Price != nil {
		t.Fatal("no override: price must stay unset")
	}
}

func TestResolveNeverMultiplies(t *testing.T) {
	res := Resolve([]Offer{pct(10, 1, true)})
	if res.Price != nil {
		t.Fatal("discount-only resolutions must not carry a price")
	}
}
