// Package syncsink mirrors approved prices into the downstream price list and
// queues pricing events for publication. It is the only writer of
// price_list_entries; the authoritative records stay in the price store.
package syncsink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
	"github.com/gostackhq/reckoner-backend/pkg/outbox"
)

const (
	KindPriceUpserted  = "price.upserted"
	KindPriceRetracted = "price.retracted"
	KindOfferRetracted = "offer.retracted"
)

type priceListRepository interface {
	UpsertWithTx(tx *gorm.DB, entry *models.PriceListEntry) error
	RetractWithTx(tx *gorm.DB, sourcePriceID uuid.UUID, validTo time.Time) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.PricingEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PricePayload is the event body for price sync events.
type PricePayload struct {
	PriceRecordID uuid.UUID       `json:"price_record_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	ChannelID     uuid.UUID       `json:"channel_id"`
	Rate          decimal.Decimal `json:"rate"`
	ValidFrom     time.Time       `json:"valid_from"`
	ValidTo       *time.Time      `json:"valid_to,omitempty"`
}

// OfferPayload is the event body for offer lifecycle events.
type OfferPayload struct {
	OfferID   uuid.UUID `json:"offer_id"`
	OfferType string    `json:"offer_type"`
	Name      string    `json:"name"`
}

// Service pushes pricing state downstream.
type Service interface {
	UpsertPrice(ctx context.Context, record *models.PriceRecord) error
	RetractPrice(ctx context.Context, record *models.PriceRecord, asOf time.Time) error
	RetractOffer(ctx context.Context, record *models.OfferRecord) error
}

type service struct {
	repo    priceListRepository
	emitter eventEmitter
	tx      txRunner
	logg    *logger.Logger
}

// NewService builds the downstream sync sink.
func NewService(repo priceListRepository, emitter eventEmitter, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("price list repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, emitter: emitter, tx: tx, logg: logg}, nil
}

// UpsertPrice mirrors a live price record into the price list. The entry and
// its outbox event commit together.
func (s *service) UpsertPrice(ctx context.Context, record *models.PriceRecord) error {
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "price record required")
	}

	entry := &models.PriceListEntry{
		ID:            uuid.New(),
		ItemID:        record.ItemID,
		ChannelID:     record.ChannelID,
		Rate:          record.SellingPrice,
		ValidFrom:     record.EffectiveFrom,
		ValidTo:       record.EffectiveTo,
		SourcePriceID: record.ID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpsertWithTx(tx, entry); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.PricingEvent{
			Kind: KindPriceUpserted,
			Data: PricePayload{
				PriceRecordID: record.ID,
				ItemID:        record.ItemID,
				ChannelID:     record.ChannelID,
				Rate:          record.SellingPrice,
				ValidFrom:     record.EffectiveFrom,
				ValidTo:       record.EffectiveTo,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSyncWarning, err, "mirror price to price list")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "price_record_id", record.ID.String()), "price mirrored downstream")
	}
	return nil
}

// RetractPrice disables the mirrored entry for an expired price record and
// caps its validity at asOf.
func (s *service) RetractPrice(ctx context.Context, record *models.PriceRecord, asOf time.Time) error {
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "price record required")
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.RetractWithTx(tx, record.ID, asOf); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.PricingEvent{
			Kind: KindPriceRetracted,
			Data: PricePayload{
				PriceRecordID: record.ID,
				ItemID:        record.ItemID,
				ChannelID:     record.ChannelID,
				Rate:          record.SellingPrice,
				ValidFrom:     record.EffectiveFrom,
				ValidTo:       &asOf,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSyncWarning, err, "retract price from price list")
	}
	return nil
}

// RetractOffer announces an expired or cancelled offer downstream. Offers
// have no price list artifact; only the event is queued.
func (s *service) RetractOffer(ctx context.Context, record *models.OfferRecord) error {
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer record required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.emitter.Emit(ctx, tx, outbox.PricingEvent{
			Kind: KindOfferRetracted,
			Data: OfferPayload{
				OfferID:   record.ID,
				OfferType: record.OfferType,
				Name:      record.Name,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSyncWarning, err, "announce offer retraction")
	}
	return nil
}
