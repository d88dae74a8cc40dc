package offers

import (
	"time"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// ComputeStatus derives an offer's status from its window at asOf, at
// datetime granularity. Only approved offers transition; pending offers stay
// Draft and rejected offers stay Cancelled.
func ComputeStatus(startsAt, endsAt time.Time, approval enums.ApprovalStatus, asOf time.Time) enums.OfferStatus {
	switch approval {
	case enums.ApprovalStatusRejected:
		return enums.OfferStatusCancelled
	case enums.ApprovalStatusPending:
		return enums.OfferStatusDraft
	}

	if endsAt.Before(asOf) {
		return enums.OfferStatusExpired
	}
	if startsAt.After(asOf) {
		return enums.OfferStatusScheduled
	}
	return enums.OfferStatusActive
}
