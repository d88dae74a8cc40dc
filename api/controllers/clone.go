package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/api/responses"
	"github.com/gostackhq/reckoner-backend/api/validators"
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/internal/prices"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

type cloneRequest struct {
	SourceItemID  uuid.UUID `json:"source_item_id" validate:"required"`
	TargetItemID  uuid.UUID `json:"target_item_id" validate:"required"`
	IncludeOffers bool      `json:"include_offers"`
	EffectiveFrom *string   `json:"effective_from,omitempty"`
}

type cloneResponse struct {
	Prices *prices.CloneResult `json:"prices"`
	Offers int                 `json:"offers"`
}

// PriceClone copies one item's live pricing (and optionally its offers) onto
// another item as drafts awaiting approval.
func PriceClone(priceSvc prices.Service, offerSvc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cloneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := parseOptionalDate(stringOrEmpty(payload.EffectiveFrom), "effective_from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := priceSvc.ClonePricing(r.Context(), prices.CloneInput{
			SourceItemID:  payload.SourceItemID,
			TargetItemID:  payload.TargetItemID,
			EffectiveFrom: from,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := cloneResponse{Prices: result}
		if payload.IncludeOffers {
			created, err := offerSvc.CloneForItem(r.Context(), payload.SourceItemID, payload.TargetItemID, from)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			out.Offers = created
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
