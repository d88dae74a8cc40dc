package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gostackhq/reckoner-backend/api/responses"
	"github.com/gostackhq/reckoner-backend/api/validators"
	"github.com/gostackhq/reckoner-backend/internal/channels"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

type channelCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=1"`
	Description *string `json:"description,omitempty"`
	IsBuying    bool    `json:"is_buying"`
}

func ChannelCreate(svc channels.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload channelCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), channels.CreateChannelInput{
			Name:        payload.Name,
			Description: payload.Description,
			IsBuying:    payload.IsBuying,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func ChannelGet(svc channels.Service, logg *logger.Logger) http.HandlerFunc {
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

// ChannelDisable turns a channel off; channels with live pricing stay on.
func ChannelDisable(svc channels.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Disable(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CompanyList returns the enabled companies.
func CompanyList(svc channels.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListCompanies(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"companies": rows})
	}
}

// ChannelList returns selling channels by default; all=true includes buying
// channels too.
func ChannelList(svc channels.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			rows []channels.ChannelDTO
			err  error
		)
		if r.URL.Query().Get("all") == "true" {
			rows, err = svc.ListAll(r.Context())
		} else {
			rows, err = svc.ListSelling(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"channels": rows})
	}
}
