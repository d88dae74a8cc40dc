package prices

import (
	"time"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// ComputeStatus derives a price record's status from its dates at asOf.
// Draft records never auto-transition; everything else is computed, never
// hand-assigned, so the approve path, the save path, and the sweep all agree.
// Comparison is at date granularity.
func ComputeStatus(effectiveFrom time.Time, effectiveTo *time.Time, draft bool, asOf time.Time) enums.PriceStatus {
	if draft {
		return enums.PriceStatusDraft
	}

	today := truncateToDate(asOf)
	from := truncateToDate(effectiveFrom)

	if effectiveTo != nil {
		to := truncateToDate(*effectiveTo)
		if to.Before(today) {
			return enums.PriceStatusExpired
		}
	}
	if from.After(today) {
		return enums.PriceStatusScheduled
	}
	return enums.PriceStatusActive
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
