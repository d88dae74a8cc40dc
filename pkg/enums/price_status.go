package enums

import "fmt"

// PriceStatus tracks the lifecycle of a price record. Scheduled/Active/Expired
// are always computed from the effective dates; Draft is the only hand-set state.
type PriceStatus string

const (
	PriceStatusDraft     PriceStatus = "draft"
	PriceStatusScheduled PriceStatus = "scheduled"
	PriceStatusActive    PriceStatus = "active"
	PriceStatusExpired   PriceStatus = "expired"
)

var validPriceStatuses = []PriceStatus{
	PriceStatusDraft,
	PriceStatusScheduled,
	PriceStatusActive,
	PriceStatusExpired,
}

// String implements fmt.Stringer.
func (s PriceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PriceStatus.
func (s PriceStatus) IsValid() bool {
	for _, candidate := range validPriceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLive reports whether records in this status participate in resolution
// and overlap validation.
func (s PriceStatus) IsLive() bool {
	return s == PriceStatusActive || s == PriceStatusScheduled
}

// ParsePriceStatus converts raw input into a PriceStatus.
func ParsePriceStatus(value string) (PriceStatus, error) {
	for _, candidate := range validPriceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price status %q", value)
}
