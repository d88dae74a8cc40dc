package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

// Repository handles offer record persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to offer record operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new offer record.
func (r *Repository) Create(ctx context.Context, record *models.OfferRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID loads an offer record by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OfferRecord, error) {
	var record models.OfferRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Update saves the provided record.
func (r *Repository) Update(ctx context.Context, record *models.OfferRecord) error {
	if record == nil {
		return gorm.ErrInvalidData
	}
	return r.db.WithContext(ctx).Save(record).Error
}

// List pages through offers for one item, newest first.
func (r *Repository) List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]models.OfferRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OfferRecord{}).Where("item_id = ?", itemID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.OfferRecord
	err := query.
		Order("starts_at desc, created_at desc").
		Offset(page.Offset()).
		Limit(page.Length).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindLiveByTypeKey returns live offers for the (item, channel, offer_type)
// exclusivity key, excluding excludeID when set. A nil channel matches only
// all-channel offers; the exclusivity key is exact.
func (r *Repository) FindLiveByTypeKey(ctx context.Context, itemID uuid.UUID, channelID *uuid.UUID, offerType string, excludeID uuid.UUID) ([]models.OfferRecord, error) {
	query := r.db.WithContext(ctx).
		Where("scope = ?", enums.OfferScopeItem).
		Where("item_id = ? AND offer_type = ?", itemID, offerType).
		Where("status IN ?", []enums.OfferStatus{enums.OfferStatusActive, enums.OfferStatusScheduled})
	if channelID != nil {
		query = query.Where("channel_id = ?", *channelID)
	} else {
		query = query.Where("channel_id IS NULL")
	}
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var records []models.OfferRecord
	err := query.Order("starts_at asc").Find(&records).Error
	return records, err
}

// FindLiveByItem returns every Active or Scheduled item-scoped offer bound
// directly to the item.
func (r *Repository) FindLiveByItem(ctx context.Context, itemID uuid.UUID) ([]models.OfferRecord, error) {
	var records []models.OfferRecord
	err := r.db.WithContext(ctx).
		Where("scope = ? AND item_id = ?", enums.OfferScopeItem, itemID).
		Where("status IN ?", []enums.OfferStatus{enums.OfferStatusActive, enums.OfferStatusScheduled}).
		Order("starts_at asc").
		Find(&records).Error
	return records, err
}

// ApplicableFilters narrows the offer set for resolution.
type ApplicableFilters struct {
	ItemIDs    []uuid.UUID
	Brands     []string
	ItemGroups []string
	ChannelID  *uuid.UUID
	CompanyID  *uuid.UUID
	AsOf       time.Time
}

// FindApplicable returns approved, live offers whose window covers asOf and
// whose channel/company scope admits the filters. Null channel or company on
// an offer means "applies everywhere" on that axis.
func (r *Repository) FindApplicable(ctx context.Context, filters ApplicableFilters) ([]models.OfferRecord, error) {
	query := r.db.WithContext(ctx).
		Where("approval_status = ?", enums.ApprovalStatusApproved).
		Where("status IN ?", []enums.OfferStatus{enums.OfferStatusActive, enums.OfferStatusScheduled}).
		Where("starts_at <= ? AND ends_at >= ?", filters.AsOf, filters.AsOf)

	if filters.ChannelID != nil {
		query = query.Where("channel_id IS NULL OR channel_id = ?", *filters.ChannelID)
	}
	if filters.CompanyID != nil {
		query = query.Where("company_id IS NULL OR company_id = ?", *filters.CompanyID)
	}

	scope := r.db.Where("scope = ?", enums.OfferScopeTransaction)
	if len(filters.ItemIDs) > 0 {
		scope = scope.Or(r.db.Where("scope = ? AND item_id IN ?", enums.OfferScopeItem, filters.ItemIDs))
	}
	if len(filters.Brands) > 0 {
		scope = scope.Or(r.db.Where("scope = ? AND target_ref IN ?", enums.OfferScopeBrand, filters.Brands))
	}
	if len(filters.ItemGroups) > 0 {
		scope = scope.Or(r.db.Where("scope = ? AND target_ref IN ?", enums.OfferScopeItemGroup, filters.ItemGroups))
	}
	query = query.Where(scope)

	var records []models.OfferRecord
	err := query.Order("priority desc, created_at asc").Find(&records).Error
	return records, err
}

// FindDueForExpiry returns live offers whose window closed before asOf.
func (r *Repository) FindDueForExpiry(ctx context.Context, asOf time.Time) ([]models.OfferRecord, error) {
	var records []models.OfferRecord
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.OfferStatus{enums.OfferStatusActive, enums.OfferStatusScheduled}).
		Where("ends_at < ?", asOf).
		Find(&records).Error
	return records, err
}

// MarkExpired batch-transitions the given offers to Expired.
func (r *Repository) MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.OfferRecord{}).
		Where("id IN ?", ids).
		Update("status", enums.OfferStatusExpired)
	return res.RowsAffected, res.Error
}

// ActivateDue batch-transitions Scheduled offers whose window covers asOf.
func (r *Repository) ActivateDue(ctx context.Context, asOf time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OfferRecord{}).
		Where("status = ?", enums.OfferStatusScheduled).
		Where("starts_at <= ? AND ends_at >= ?", asOf, asOf).
		Update("status", enums.OfferStatusActive)
	return res.RowsAffected, res.Error
}
