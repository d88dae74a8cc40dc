package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

type stubRepository struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    map[uuid.UUID]error
}

func (r *stubRepository) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if limit < len(r.events) {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *stubRepository) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *stubRepository) MarkFailed(id uuid.UUID, err error) error {
	if r.failed == nil {
		r.failed = map[uuid.UUID]error{}
	}
	r.failed[id] = err
	return nil
}

type stubResult struct {
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type stubPublisher struct {
	messages []*gcppubsub.Message
	failFor  map[string]error
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if err, ok := p.failFor[msg.Attributes["event_id"]]; ok {
		return stubResult{err: err}
	}
	return stubResult{}
}

func newTestService(t *testing.T, repo *stubRepository, pub *stubPublisher) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test"}),
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestDrainOnceMarksPublished(t *testing.T) {
	eventID := uuid.New()
	repo := &stubRepository{events: []models.OutboxEvent{{
		ID:      eventID,
		Topic:   "pricing-events",
		Kind:    "price_record.activated",
		Payload: []byte(`{"item_id":"abc"}`),
	}}}
	pub := &stubPublisher{}
	service := newTestService(t, repo, pub)

	if err := service.drainOnce(context.Background()); err != nil {
		t.Fatalf("drainOnce: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if string(msg.Data) != `{"item_id":"abc"}` {
		t.Errorf("unexpected payload %q", msg.Data)
	}
	if msg.Attributes["kind"] != "price_record.activated" {
		t.Errorf("unexpected kind attribute %q", msg.Attributes["kind"])
	}
	if msg.Attributes["event_id"] != eventID.String() {
		t.Errorf("unexpected event_id attribute %q", msg.Attributes["event_id"])
	}
	if len(repo.published) != 1 || repo.published[0] != eventID {
		t.Errorf("expected event marked published, got %v", repo.published)
	}
	if len(repo.failed) != 0 {
		t.Errorf("expected no failures, got %v", repo.failed)
	}
}

func TestDrainOnceMarksFailedAndContinues(t *testing.T) {
	badID := uuid.New()
	goodID := uuid.New()
	repo := &stubRepository{events: []models.OutboxEvent{
		{ID: badID, Kind: "price_record.activated", Payload: []byte(`{}`)},
		{ID: goodID, Kind: "offer_record.approved", Payload: []byte(`{}`)},
	}}
	pubErr := errors.New("topic unavailable")
	pub := &stubPublisher{failFor: map[string]error{badID.String(): pubErr}}
	service := newTestService(t, repo, pub)

	if err := service.drainOnce(context.Background()); err != nil {
		t.Fatalf("drainOnce: %v", err)
	}

	if len(repo.published) != 1 || repo.published[0] != goodID {
		t.Errorf("expected only the healthy event published, got %v", repo.published)
	}
	if got, ok := repo.failed[badID]; !ok || !errors.Is(got, pubErr) {
		t.Errorf("expected failure recorded for %s, got %v", badID, repo.failed)
	}
}

func TestDrainOncePropagatesFetchError(t *testing.T) {
	fetchErr := errors.New("db gone")
	repo := &stubRepository{fetchErr: fetchErr}
	service := newTestService(t, repo, &stubPublisher{})

	if err := service.drainOnce(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	service := newTestService(t, &stubRepository{}, &stubPublisher{})
	if service.batchSize != defaultBatchSize {
		t.Errorf("batchSize = %d, want %d", service.batchSize, defaultBatchSize)
	}
	if service.pollInterval != defaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", service.pollInterval, defaultPollInterval)
	}
}

func TestNewServiceRequiresPublisher(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test"}),
		Repository: &stubRepository{},
	})
	if err == nil {
		t.Fatal("expected error when publisher missing")
	}
}
