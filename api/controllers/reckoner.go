package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gostackhq/reckoner-backend/api/responses"
	"github.com/gostackhq/reckoner-backend/api/validators"
	"github.com/gostackhq/reckoner-backend/internal/catalog"
	"github.com/gostackhq/reckoner-backend/internal/reckoner"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

// ActivePrice resolves one item's current price and best offer on a channel.
func ActivePrice(svc reckoner.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemCode := strings.TrimSpace(r.URL.Query().Get("item_code"))
		if itemCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item_code is required"))
			return
		}

		channelID, err := parseUUIDParam(r.URL.Query().Get("channel_id"), "channel_id")
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

		ctx := logg.WithItemCode(r.Context(), itemCode)
		dto, err := svc.GetActivePrice(ctx, itemCode, channelID, companyID, asOf)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// Grid answers the bulk resolution query: items by filter, resolved per
// selling channel, optionally collapsed into variant groups.
func Grid(svc reckoner.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := gridFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grid, err := svc.GetGrid(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, grid)
	}
}

type propagationRequest struct {
	ItemCode      string          `json:"item_code" validate:"required"`
	ChannelID     uuid.UUID       `json:"channel_id" validate:"required"`
	CompanyID     *uuid.UUID      `json:"company_id,omitempty"`
	MRP           decimal.Decimal `json:"mrp" validate:"required"`
	MOP           decimal.Decimal `json:"mop" validate:"required"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"required"`
	EffectiveFrom string          `json:"effective_from" validate:"required"`
	EffectiveTo   *string         `json:"effective_to,omitempty"`
	Propagate     bool            `json:"propagate"`
}

// SaveWithPropagation saves a price for an item and, when asked, fans it out
// to sibling variants sharing the same price-affecting attributes. All writes
// commit or roll back together.
func SaveWithPropagation(svc reckoner.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload propagationRequest
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

		ctx := logg.WithItemCode(r.Context(), payload.ItemCode)
		result, err := svc.SavePriceWithPropagation(ctx, reckoner.SavePropagationInput{
			ItemCode:      payload.ItemCode,
			ChannelID:     payload.ChannelID,
			CompanyID:     payload.CompanyID,
			MRP:           payload.MRP,
			MOP:           payload.MOP,
			SellingPrice:  payload.SellingPrice,
			EffectiveFrom: from,
			EffectiveTo:   to,
			Propagate:     payload.Propagate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ExportCSV streams the grid as a CSV attachment, capped at the export row
// limit.
func ExportCSV(exporter *reckoner.Exporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := gridFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="ready-reckoner-%s.csv"`, time.Now().UTC().Format("20060102")))

		result, err := exporter.WriteCSV(r.Context(), filters, w)
		if err != nil {
			// Headers may already be on the wire; log and drop the response.
			logg.Error(r.Context(), "grid export failed", err)
			return
		}
		ctx := logg.WithFields(r.Context(), map[string]any{"rows": result.Rows, "truncated": result.Truncated})
		logg.Info(ctx, "grid exported")
	}
}

func gridFiltersFromQuery(r *http.Request) (reckoner.GridFilters, error) {
	q := r.URL.Query()

	channelID, err := parseOptionalUUIDQuery(r, "channel_id")
	if err != nil {
		return reckoner.GridFilters{}, err
	}
	companyID, err := parseOptionalUUIDQuery(r, "company_id")
	if err != nil {
		return reckoner.GridFilters{}, err
	}
	asOf, err := parseAsOf(r)
	if err != nil {
		return reckoner.GridFilters{}, err
	}
	page, err := pageFromQuery(r)
	if err != nil {
		return reckoner.GridFilters{}, err
	}

	return reckoner.GridFilters{
		Items: catalog.ItemFilters{
			Code:        strings.TrimSpace(q.Get("code")),
			Category:    strings.TrimSpace(q.Get("category")),
			SubCategory: strings.TrimSpace(q.Get("sub_category")),
			Brand:       strings.TrimSpace(q.Get("brand")),
			Model:       strings.TrimSpace(q.Get("model")),
			Search:      strings.TrimSpace(q.Get("search")),
		},
		ChannelID:     channelID,
		CompanyID:     companyID,
		AsOf:          asOf,
		GroupVariants: q.Get("group_variants") != "false",
		Page:          page,
	}, nil
}
