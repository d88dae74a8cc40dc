package enums

import "fmt"

// OfferValueType describes how an offer's value is applied to the base price.
type OfferValueType string

const (
	OfferValuePercentage    OfferValueType = "percentage"
	OfferValueAmount        OfferValueType = "amount"
	OfferValuePriceOverride OfferValueType = "price_override"
)

var validOfferValueTypes = []OfferValueType{
	OfferValuePercentage,
	OfferValueAmount,
	OfferValuePriceOverride,
}

// String implements fmt.Stringer.
func (t OfferValueType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OfferValueType.
func (t OfferValueType) IsValid() bool {
	for _, candidate := range validOfferValueTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOfferValueType converts raw input into an OfferValueType.
func ParseOfferValueType(value string) (OfferValueType, error) {
	for _, candidate := range validOfferValueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer value type %q", value)
}

// OfferScope selects what an offer targets: a single item, a whole item
// group or brand, or the entire transaction.
type OfferScope string

const (
	OfferScopeItem        OfferScope = "item"
	OfferScopeItemGroup   OfferScope = "item_group"
	OfferScopeBrand       OfferScope = "brand"
	OfferScopeTransaction OfferScope = "transaction"
)

var validOfferScopes = []OfferScope{
	OfferScopeItem,
	OfferScopeItemGroup,
	OfferScopeBrand,
	OfferScopeTransaction,
}

// String implements fmt.Stringer.
func (s OfferScope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OfferScope.
func (s OfferScope) IsValid() bool {
	for _, candidate := range validOfferScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOfferScope converts raw input into an OfferScope.
func ParseOfferScope(value string) (OfferScope, error) {
	for _, candidate := range validOfferScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer scope %q", value)
}
