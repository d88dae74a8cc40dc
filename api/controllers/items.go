package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/api/responses"
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/internal/prices"
	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

// ItemTagReader lists the live commercial tags attached to items.
type ItemTagReader interface {
	FindLiveForItems(ctx context.Context, itemIDs []uuid.UUID, companyID *uuid.UUID, asOf time.Time) ([]models.CommercialTag, error)
}

type itemTagView struct {
	Tag           string     `json:"tag"`
	Reason        *string    `json:"reason,omitempty"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

type itemPricingDetail struct {
	ItemID uuid.UUID               `json:"item_id"`
	Prices []prices.PriceRecordDTO `json:"prices"`
	Offers []offers.OfferRecordDTO `json:"offers"`
	Tags   []itemTagView           `json:"tags"`
}

// ItemPricing assembles the detail drawer for one item: its price history,
// its offers, and its live commercial tags.
func ItemPricing(priceSvc prices.Service, offerSvc offers.Service, tags ItemTagReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		companyID, err := parseOptionalUUIDQuery(r, "company_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		asOf, err := parseAsOf(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if asOf.IsZero() {
			asOf = time.Now().UTC()
		}

		page := pagination.Page{Number: 1, Length: pagination.MaxPageLength}

		priceRecords, _, err := priceSvc.List(r.Context(), itemID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerRecords, _, err := offerSvc.List(r.Context(), itemID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail := itemPricingDetail{
			ItemID: itemID,
			Prices: priceRecords,
			Offers: offerRecords,
			Tags:   []itemTagView{},
		}
		if tags != nil {
			rows, err := tags.FindLiveForItems(r.Context(), []uuid.UUID{itemID}, companyID, asOf)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for _, row := range rows {
				detail.Tags = append(detail.Tags, itemTagView{
					Tag:           row.Tag,
					Reason:        row.Reason,
					EffectiveFrom: row.EffectiveFrom,
					EffectiveTo:   row.EffectiveTo,
				})
			}
		}
		responses.WriteSuccess(w, detail)
	}
}
