package syncsink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
)

// Repository handles price list entry persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to price list operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertWithTx writes the entry keyed by its source price record: a repeat
// sync for the same record updates the existing row instead of duplicating it.
func (r *Repository) UpsertWithTx(tx *gorm.DB, entry *models.PriceListEntry) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_price_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rate", "valid_from", "valid_to", "disabled", "updated_at",
		}),
	}).Create(entry).Error
}

// RetractWithTx closes the entry for a source price record: disabled, with
// validity capped at validTo.
func (r *Repository) RetractWithTx(tx *gorm.DB, sourcePriceID uuid.UUID, validTo time.Time) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.PriceListEntry{}).
		Where("source_price_id = ?", sourcePriceID).
		Updates(map[string]any{
			"disabled": true,
			"valid_to": validTo,
		}).Error
}

// FindBySourcePriceID loads the mirrored entry for a price record, if any.
func (r *Repository) FindBySourcePriceID(ctx context.Context, sourcePriceID uuid.UUID) (*models.PriceListEntry, error) {
	var entry models.PriceListEntry
	if err := r.db.WithContext(ctx).First(&entry, "source_price_id = ?", sourcePriceID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
