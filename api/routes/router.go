package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gostackhq/reckoner-backend/api/controllers"
	"github.com/gostackhq/reckoner-backend/api/middleware"
	"github.com/gostackhq/reckoner-backend/internal/channels"
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/internal/prices"
	"github.com/gostackhq/reckoner-backend/internal/reckoner"
	"github.com/gostackhq/reckoner-backend/pkg/config"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

// NewRouter assembles the HTTP surface. Read routes need any valid token;
// mutating routes additionally need a write-capable role.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	priceService prices.Service,
	offerService offers.Service,
	channelService channels.Service,
	reckonerService reckoner.Service,
	exporter *reckoner.Exporter,
	tagReader controllers.ItemTagReader,
	rateStore middleware.RateLimiterStore,
) http.Handler {
	writeLimit := middleware.WriteRateLimit(
		middleware.NewWriteRateLimitPolicy("pricing-write", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.ActorLimit),
		rateStore,
		logg,
	)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/prices", func(r chi.Router) {
			r.Get("/", controllers.PriceList(priceService, logg))
			r.Get("/active", controllers.ActivePrice(reckonerService, logg))
			r.Get("/{id}", controllers.PriceGet(priceService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriteRole(logg), writeLimit)
				r.Post("/", controllers.PriceSave(priceService, logg))
				r.Post("/{id}/approve", controllers.PriceApprove(priceService, logg))
				r.Post("/{id}/expire", controllers.PriceExpire(priceService, logg))
				r.Delete("/{id}", controllers.PriceDelete(priceService, logg))
				r.Post("/propagate", controllers.SaveWithPropagation(reckonerService, logg))
				r.Post("/clone", controllers.PriceClone(priceService, offerService, logg))
			})
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", controllers.OfferList(offerService, logg))
			r.Get("/{id}", controllers.OfferGet(offerService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriteRole(logg), writeLimit)
				r.Post("/", controllers.OfferSave(offerService, logg))
				r.Post("/{id}/approve", controllers.OfferApprove(offerService, logg))
				r.Post("/{id}/reject", controllers.OfferReject(offerService, logg))
			})
		})

		r.Route("/reckoner", func(r chi.Router) {
			r.Get("/", controllers.Grid(reckonerService, logg))
			r.With(middleware.RequireWriteRole(logg)).
				Get("/export", controllers.ExportCSV(exporter, logg))
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", controllers.ChannelList(channelService, logg))
			r.Get("/{id}", controllers.ChannelGet(channelService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireWriteRole(logg), writeLimit)
				r.Post("/", controllers.ChannelCreate(channelService, logg))
				r.Post("/{id}/disable", controllers.ChannelDisable(channelService, logg))
			})
		})

		r.Get("/companies", controllers.CompanyList(channelService, logg))
		r.Get("/items/{id}/pricing", controllers.ItemPricing(priceService, offerService, tagReader, logg))
	})

	return r
}
