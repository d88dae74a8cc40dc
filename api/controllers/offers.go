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
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

type offerSaveRequest struct {
	ID            *uuid.UUID       `json:"id,omitempty"`
	Name          string           `json:"name" validate:"required,min=1"`
	Scope         string           `json:"scope" validate:"required"`
	ItemID        *uuid.UUID       `json:"item_id,omitempty"`
	TargetRef     *string          `json:"target_ref,omitempty"`
	ChannelID     *uuid.UUID       `json:"channel_id,omitempty"`
	CompanyID     *uuid.UUID       `json:"company_id,omitempty"`
	OfferType     string           `json:"offer_type" validate:"required"`
	ValueType     string           `json:"value_type" validate:"required"`
	Value         decimal.Decimal  `json:"value" validate:"required"`
	Priority      int              `json:"priority"`
	Stackable     bool             `json:"stackable"`
	StartsAt      time.Time        `json:"starts_at" validate:"required"`
	EndsAt        time.Time        `json:"ends_at" validate:"required"`
	MinBillAmount *decimal.Decimal `json:"min_bill_amount,omitempty"`
	BankName      *string          `json:"bank_name,omitempty"`
	CardType      *string          `json:"card_type,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// OfferSave submits an offer; new offers start pending approval.
func OfferSave(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload offerSaveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope, err := enums.ParseOfferScope(payload.Scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scope"))
			return
		}
		valueType, err := enums.ParseOfferValueType(payload.ValueType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value type"))
			return
		}

		dto, err := svc.Save(r.Context(), offers.SaveOfferInput{
			ID:            payload.ID,
			Name:          payload.Name,
			Scope:         scope,
			ItemID:        payload.ItemID,
			TargetRef:     payload.TargetRef,
			ChannelID:     payload.ChannelID,
			CompanyID:     payload.CompanyID,
			OfferType:     payload.OfferType,
			ValueType:     valueType,
			Value:         payload.Value,
			Priority:      payload.Priority,
			Stackable:     payload.Stackable,
			StartsAt:      payload.StartsAt,
			EndsAt:        payload.EndsAt,
			MinBillAmount: payload.MinBillAmount,
			BankName:      payload.BankName,
			CardType:      payload.CardType,
			Notes:         payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// OfferApprove marks the offer approved and schedules or activates it.
func OfferApprove(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
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

		dto, err := svc.Approve(r.Context(), id, approver, time.Time{})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// OfferReject cancels a pending offer. Rejection is terminal.
func OfferReject(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
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

		dto, err := svc.Reject(r.Context(), id, approver)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// OfferGet loads one offer by id.
func OfferGet(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
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

// OfferList pages through an item's offers.
func OfferList(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
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
