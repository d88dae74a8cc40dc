package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/api/middleware"
	"github.com/gostackhq/reckoner-backend/api/responses"
	"github.com/gostackhq/reckoner-backend/api/validators"
	"github.com/gostackhq/reckoner-backend/internal/prices"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type priceSaveRequest struct {
	ID            *uuid.UUID      `json:"id,omitempty"`
	ItemID        uuid.UUID       `json:"item_id" validate:"required"`
	ChannelID     uuid.UUID       `json:"channel_id" validate:"required"`
	CompanyID     *uuid.UUID      `json:"company_id,omitempty"`
	MRP           decimal.Decimal `json:"mrp" validate:"required"`
	MOP           decimal.Decimal `json:"mop" validate:"required"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"required"`
	EffectiveFrom string          `json:"effective_from" validate:"required"`
	EffectiveTo   *string         `json:"effective_to,omitempty"`
	Draft         bool            `json:"draft"`
	Notes         *string         `json:"notes,omitempty"`
}

// PriceSave submits a price record, draft or live.
func PriceSave(svc prices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload priceSaveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := parseDate(payload.EffectiveFrom, "effective_from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var to *time.Time
		if payload.EffectiveTo != nil {
			to, err = parseOptionalDate(*payload.EffectiveTo, "effective_to")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		dto, err := svc.Save(r.Context(), prices.SavePriceInput{
			ID:            payload.ID,
			ItemID:        payload.ItemID,
			ChannelID:     payload.ChannelID,
			CompanyID:     payload.CompanyID,
			MRP:           payload.MRP,
			MOP:           payload.MOP,
			SellingPrice:  payload.SellingPrice,
			EffectiveFrom: from,
			EffectiveTo:   to,
			Draft:         payload.Draft,
			Notes:         payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// PriceApprove moves a draft record into the live lifecycle. The approver is
// the authenticated caller.
func PriceApprove(svc prices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approver := middleware.UserIDFromContext(r.Context())
		if approver == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		result, err := svc.Approve(r.Context(), id, approver, time.Time{})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PriceExpire forces the expiry check on one record, ahead of the sweep.
func PriceExpire(svc prices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.ExpireIfDue(r.Context(), id, time.Time{})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// PriceDelete destroys a record outright. Records still mirrored downstream
// refuse deletion with a state conflict.
func PriceDelete(svc prices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, time.Time{}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// PriceGet loads one price record by id.
func PriceGet(svc prices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// PriceList pages through an item's price history.
func PriceList(svc prices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseUUIDParam(r.URL.Query().Get("item_id"), "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, total, err := svc.List(r.Context(), itemID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records, "total": total})
	}
}

func pageFromQuery(r *http.Request) (pagination.Page, error) {
	number, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.Page{}, err
	}
	length, err := validators.ParseQueryInt(r, "page_length", pagination.DefaultPageLength, 1, pagination.MaxPageLength)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.NormalizePage(number, length), nil
}
