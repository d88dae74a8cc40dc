package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

type stubPriceStore struct {
	due       []models.PriceRecord
	expired   [][]uuid.UUID
	activated int64
	findErr   error
}

func (s *stubPriceStore) FindDueForExpiry(context.Context, time.Time) ([]models.PriceRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.due, nil
}

func (s *stubPriceStore) MarkExpired(_ context.Context, ids []uuid.UUID) (int64, error) {
	s.expired = append(s.expired, ids)
	s.due = nil
	return int64(len(ids)), nil
}

func (s *stubPriceStore) ActivateDue(context.Context, time.Time) (int64, error) {
	return s.activated, nil
}

type stubOfferStore struct {
	due     []models.OfferRecord
	expired [][]uuid.UUID
}

func (s *stubOfferStore) FindDueForExpiry(context.Context, time.Time) ([]models.OfferRecord, error) {
	return s.due, nil
}

func (s *stubOfferStore) MarkExpired(_ context.Context, ids []uuid.UUID) (int64, error) {
	s.expired = append(s.expired, ids)
	s.due = nil
	return int64(len(ids)), nil
}

func (s *stubOfferStore) ActivateDue(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubTagStore struct {
	swept int64
	calls int
}

func (s *stubTagStore) ExpireDue(context.Context, time.Time) (int64, error) {
	s.calls++
	swept := s.swept
	s.swept = 0
	return swept, nil
}

type stubSink struct {
	prices []uuid.UUID
	offers []uuid.UUID
	err    error
}

func (s *stubSink) RetractPrice(_ context.Context, record *models.PriceRecord, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.prices = append(s.prices, record.ID)
	return nil
}

func (s *stubSink) RetractOffer(_ context.Context, record *models.OfferRecord) error {
	if s.err != nil {
		return s.err
	}
	s.offers = append(s.offers, record.ID)
	return nil
}

func newJob(t *testing.T, prices *stubPriceStore, offers *stubOfferStore, sink *stubSink) *Job {
	t.Helper()
	params := JobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Prices: prices,
		Offers: offers,
	}
	if sink != nil {
		params.Sink = sink
	}
	job, err := NewJob(params)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job.now = func() time.Time { return time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC) }
	return job
}

func TestRunSweepsDueRecordsAndRetracts(t *testing.T) {
	priceID, offerID := uuid.New(), uuid.New()
	prices := &stubPriceStore{due: []models.PriceRecord{{ID: priceID}}}
	offers := &stubOfferStore{due: []models.OfferRecord{{ID: offerID}}}
	sink := &stubSink{}

	job := newJob(t, prices, offers, sink)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(prices.expired) != 1 || len(prices.expired[0]) != 1 || prices.expired[0][0] != priceID {
		t.Fatalf("expected one price expired, got %v", prices.expired)
	}
	if len(offers.expired) != 1 || offers.expired[0][0] != offerID {
		t.Fatalf("expected one offer expired, got %v", offers.expired)
	}
	if len(sink.prices) != 1 || len(sink.offers) != 1 {
		t.Fatalf("expected downstream retractions, got %v / %v", sink.prices, sink.offers)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	prices := &stubPriceStore{due: []models.PriceRecord{{ID: uuid.New()}}}
	offers := &stubOfferStore{}

	job := newJob(t, prices, offers, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(prices.expired) != 1 {
		t.Fatalf("rerun must find nothing to expire, got %d batches", len(prices.expired))
	}
}

func TestRunContinuesPastSinkFailure(t *testing.T) {
	prices := &stubPriceStore{due: []models.PriceRecord{{ID: uuid.New()}}}
	offers := &stubOfferStore{due: []models.OfferRecord{{ID: uuid.New()}}}
	sink := &stubSink{err: errors.New("pubsub down")}

	job := newJob(t, prices, offers, sink)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("sink failures must not fail the sweep: %v", err)
	}
	if len(prices.expired) != 1 || len(offers.expired) != 1 {
		t.Fatal("records must still expire when retraction is deferred")
	}
}

func TestRunExpiresLapsedTags(t *testing.T) {
	prices := &stubPriceStore{}
	offers := &stubOfferStore{}
	tags := &stubTagStore{swept: 3}

	job := newJob(t, prices, offers, nil)
	job.tags = tags
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if tags.calls != 1 {
		t.Fatalf("expected one tag sweep, got %d", tags.calls)
	}

	// Rerun finds nothing left.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if tags.calls != 2 {
		t.Fatalf("expected tag sweep each run, got %d", tags.calls)
	}
}

func TestRunAggregatesPhaseErrors(t *testing.T) {
	prices := &stubPriceStore{findErr: errors.New("db down")}
	offers := &stubOfferStore{due: []models.OfferRecord{{ID: uuid.New()}}}

	job := newJob(t, prices, offers, nil)
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error from the price phase")
	}
	// The offer phase still ran.
	if len(offers.expired) != 1 {
		t.Fatal("later phases must run despite earlier failures")
	}
}
