package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
)

// PricingEvent is one domain event bound for the pricing events topic.
type PricingEvent struct {
	Kind       string
	Actor      *ActorRef
	Data       any
	Version    int
	OccurredAt time.Time
}

type Service struct {
	repo  *Repository
	topic string
	logg  *logger.Logger
}

func NewService(repo *Repository, topic string, logg *logger.Logger) *Service {
	return &Service{repo: repo, topic: topic, logg: logg}
}

// Emit serializes the event and queues it inside the caller's transaction.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event PricingEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		Topic:   s.topic,
		Kind:    event.Kind,
		Payload: payloadJSON,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id": envelope.EventID,
			"kind":     event.Kind,
			"topic":    s.topic,
		})
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}
