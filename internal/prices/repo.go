package prices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

// Repository handles price record persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to price record operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new price record.
func (r *Repository) Create(ctx context.Context, record *models.PriceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// CreateWithTx persists a record inside the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, record *models.PriceRecord) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(record).Error
}

// FindByID loads a price record by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PriceRecord, error) {
	var record models.PriceRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Update saves the provided record.
func (r *Repository) Update(ctx context.Context, record *models.PriceRecord) error {
	if record == nil {
		return gorm.ErrInvalidData
	}
	return r.db.WithContext(ctx).Save(record).Error
}

// UpdateWithTx saves the record inside the provided transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, record *models.PriceRecord) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if record == nil {
		return gorm.ErrInvalidData
	}
	return tx.Save(record).Error
}

// Delete removes a price record by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PriceRecord{}, "id = ?", id).Error
}

// CountLiveListEntries counts enabled downstream price list entries still
// referencing the given record and valid at asOf.
func (r *Repository) CountLiveListEntries(ctx context.Context, sourcePriceID uuid.UUID, asOf time.Time) (int64, error) {
	day := asOf.UTC().Format("2006-01-02")
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceListEntry{}).
		Where("source_price_id = ?", sourcePriceID).
		Where("disabled = ?", false).
		Where("valid_to IS NULL OR valid_to >= ?", day).
		Count(&count).Error
	return count, err
}

// FindLiveByKey returns the non-Draft, non-Expired records for one
// (item, channel, company) key, excluding excludeID when set. A nil company
// matches only records with a null company; the key is exact, not scoped.
func (r *Repository) FindLiveByKey(ctx context.Context, itemID, channelID uuid.UUID, companyID *uuid.UUID, excludeID uuid.UUID) ([]models.PriceRecord, error) {
	query := r.db.WithContext(ctx).
		Where("item_id = ? AND channel_id = ?", itemID, channelID).
		Where("status IN ?", []enums.PriceStatus{enums.PriceStatusActive, enums.PriceStatusScheduled})
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	} else {
		query = query.Where("company_id IS NULL")
	}
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var records []models.PriceRecord
	err := query.Order("effective_from asc").Find(&records).Error
	return records, err
}

// FindLiveByItem returns every Active or Scheduled record for an item across
// all channels and companies.
func (r *Repository) FindLiveByItem(ctx context.Context, itemID uuid.UUID) ([]models.PriceRecord, error) {
	var records []models.PriceRecord
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Where("status IN ?", []enums.PriceStatus{enums.PriceStatusActive, enums.PriceStatusScheduled}).
		Order("effective_from asc").
		Find(&records).Error
	return records, err
}

// FindCurrent returns the live records covering asOf for the given items,
// optionally narrowed to one channel. Company scoping: null-company records
// match every company filter; specific-company records match only their own.
func (r *Repository) FindCurrent(ctx context.Context, itemIDs []uuid.UUID, channelID *uuid.UUID, companyID *uuid.UUID, asOf time.Time) ([]models.PriceRecord, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	day := asOf.UTC().Format("2006-01-02")
	query := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Where("status IN ?", []enums.PriceStatus{enums.PriceStatusActive, enums.PriceStatusScheduled}).
		Where("effective_from <= ?", day).
		Where("effective_to IS NULL OR effective_to >= ?", day)
	if channelID != nil {
		query = query.Where("channel_id = ?", *channelID)
	}
	if companyID != nil {
		query = query.Where("company_id IS NULL OR company_id = ?", *companyID)
	}

	var records []models.PriceRecord
	err := query.Order("effective_from desc, created_at desc").Find(&records).Error
	return records, err
}

// List pages through price records for one item ordered by newest first.
func (r *Repository) List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]models.PriceRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PriceRecord{}).Where("item_id = ?", itemID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.PriceRecord
	err := query.
		Order("effective_from desc, created_at desc").
		Offset(page.Offset()).
		Limit(page.Length).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindDueForExpiry returns live records whose window closed before asOf.
func (r *Repository) FindDueForExpiry(ctx context.Context, asOf time.Time) ([]models.PriceRecord, error) {
	day := asOf.UTC().Format("2006-01-02")
	var records []models.PriceRecord
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.PriceStatus{enums.PriceStatusActive, enums.PriceStatusScheduled}).
		Where("effective_to IS NOT NULL AND effective_to < ?", day).
		Find(&records).Error
	return records, err
}

// MarkExpired batch-transitions the given records to Expired.
func (r *Repository) MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.PriceRecord{}).
		Where("id IN ?", ids).
		Update("status", enums.PriceStatusExpired)
	return res.RowsAffected, res.Error
}

// ActivateDue batch-transitions Scheduled records whose window now covers
// asOf to Active.
func (r *Repository) ActivateDue(ctx context.Context, asOf time.Time) (int64, error) {
	day := asOf.UTC().Format("2006-01-02")
	res := r.db.WithContext(ctx).
		Model(&models.PriceRecord{}).
		Where("status = ?", enums.PriceStatusScheduled).
		Where("effective_from <= ?", day).
		Where("effective_to IS NULL OR effective_to >= ?", day).
		Update("status", enums.PriceStatusActive)
	return res.RowsAffected, res.Error
}
