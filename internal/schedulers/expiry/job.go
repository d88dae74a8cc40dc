// Package expiry hosts the daily sweep that transitions price and offer
// records across their lifecycle edges: due Scheduled records become Active,
// lapsed records become Expired, and expired prices are retracted downstream.
package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
	"github.com/gostackhq/reckoner-backend/pkg/metrics"
)

const jobName = "expiry-sweep"

// Job is the daily expiry sweep. It is idempotent: a rerun finds nothing
// left to transition.
type Job struct {
	logg    *logger.Logger
	prices  priceStore
	offers  offerStore
	tags    tagStore
	sink    retractionSink
	metrics *metrics.JobMetrics
	now     func() time.Time
}

type priceStore interface {
	FindDueForExpiry(ctx context.Context, asOf time.Time) ([]models.PriceRecord, error)
	MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error)
	ActivateDue(ctx context.Context, asOf time.Time) (int64, error)
}

type offerStore interface {
	FindDueForExpiry(ctx context.Context, asOf time.Time) ([]models.OfferRecord, error)
	MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error)
	ActivateDue(ctx context.Context, asOf time.Time) (int64, error)
}

type retractionSink interface {
	RetractPrice(ctx context.Context, record *models.PriceRecord, asOf time.Time) error
	RetractOffer(ctx context.Context, record *models.OfferRecord) error
}

type tagStore interface {
	ExpireDue(ctx context.Context, asOf time.Time) (int64, error)
}

// JobParams configure the expiry sweep.
type JobParams struct {
	Logger  *logger.Logger
	Prices  priceStore
	Offers  offerStore
	Tags    tagStore
	Sink    retractionSink
	Metrics *metrics.JobMetrics
}

// NewJob builds the sweep. The sink is optional; a nil sink skips downstream
// retraction.
func NewJob(params JobParams) (*Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price store required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offer store required")
	}
	return &Job{
		logg:    params.Logger,
		prices:  params.Prices,
		offers:  params.Offers,
		tags:    params.Tags,
		sink:    params.Sink,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// Name implements cron.Job.
func (j *Job) Name() string { return jobName }

// Run executes one sweep cycle. Each phase runs even when an earlier phase
// failed; errors are aggregated so a single bad record cannot stall the rest.
func (j *Job) Run(ctx context.Context) error {
	asOf := j.now().UTC()

	var errs error
	errs = multierr.Append(errs, j.activateDue(ctx, asOf))
	errs = multierr.Append(errs, j.expirePrices(ctx, asOf))
	errs = multierr.Append(errs, j.expireOffers(ctx, asOf))
	errs = multierr.Append(errs, j.expireTags(ctx, asOf))
	return errs
}

func (j *Job) activateDue(ctx context.Context, asOf time.Time) error {
	activatedPrices, err := j.prices.ActivateDue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("activate due prices: %w", err)
	}
	activatedOffers, err := j.offers.ActivateDue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("activate due offers: %w", err)
	}
	if activatedPrices+activatedOffers > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"prices_activated": activatedPrices,
			"offers_activated": activatedOffers,
		})
		j.logg.Info(logCtx, "scheduled records activated")
	}
	return nil
}

func (j *Job) expirePrices(ctx context.Context, asOf time.Time) error {
	due, err := j.prices.FindDueForExpiry(ctx, asOf)
	if err != nil {
		return fmt.Errorf("find expiring prices: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, record := range due {
		ids = append(ids, record.ID)
	}
	swept, err := j.prices.MarkExpired(ctx, ids)
	if err != nil {
		return fmt.Errorf("expire prices: %w", err)
	}
	j.metrics.AddSwept(jobName, "price", swept)

	// Downstream retraction is best effort; a sink failure is logged and
	// the record stays expired.
	for i := range due {
		if j.sink == nil {
			break
		}
		if err := j.sink.RetractPrice(ctx, &due[i], asOf); err != nil {
			logCtx := j.logg.WithField(ctx, "price_record_id", due[i].ID.String())
			j.logg.Warn(logCtx, "price retraction deferred: "+err.Error())
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "prices_expired", swept), "expired price records swept")
	return nil
}

func (j *Job) expireOffers(ctx context.Context, asOf time.Time) error {
	due, err := j.offers.FindDueForExpiry(ctx, asOf)
	if err != nil {
		return fmt.Errorf("find expiring offers: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, record := range due {
		ids = append(ids, record.ID)
	}
	swept, err := j.offers.MarkExpired(ctx, ids)
	if err != nil {
		return fmt.Errorf("expire offers: %w", err)
	}
	j.metrics.AddSwept(jobName, "offer", swept)

	for i := range due {
		if j.sink == nil {
			break
		}
		if err := j.sink.RetractOffer(ctx, &due[i]); err != nil {
			logCtx := j.logg.WithField(ctx, "offer_id", due[i].ID.String())
			j.logg.Warn(logCtx, "offer retraction deferred: "+err.Error())
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "offers_expired", swept), "expired offer records swept")
	return nil
}

func (j *Job) expireTags(ctx context.Context, asOf time.Time) error {
	if j.tags == nil {
		return nil
	}
	swept, err := j.tags.ExpireDue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("expire commercial tags: %w", err)
	}
	if swept > 0 {
		j.metrics.AddSwept(jobName, "tag", swept)
		j.logg.Info(j.logg.WithField(ctx, "tags_expired", swept), "expired commercial tags swept")
	}
	return nil
}
