package reckoner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// TagRepository reads commercial tag annotations for grid rows.
type TagRepository struct {
	db *gorm.DB
}

// NewTagRepository binds a GORM DB to commercial tag lookups.
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// FindLiveForItems returns active tags covering asOf for the given items,
// honouring the null-company-matches-all scoping rule.
func (r *TagRepository) FindLiveForItems(ctx context.Context, itemIDs []uuid.UUID, companyID *uuid.UUID, asOf time.Time) ([]models.CommercialTag, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	day := asOf.UTC().Format("2006-01-02")
	query := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Where("status = ?", enums.TagStatusActive).
		Where("effective_from IS NULL OR effective_from <= ?", day).
		Where("effective_to IS NULL OR effective_to >= ?", day)
	if companyID != nil {
		query = query.Where("company_id IS NULL OR company_id = ?", *companyID)
	}

	var tags []models.CommercialTag
	err := query.Order("tag asc").Find(&tags).Error
	return tags, err
}

// ExpireDue batch-transitions active tags whose window closed before asOf.
func (r *TagRepository) ExpireDue(ctx context.Context, asOf time.Time) (int64, error) {
	day := asOf.UTC().Format("2006-01-02")
	res := r.db.WithContext(ctx).
		Model(&models.CommercialTag{}).
		Where("status = ?", enums.TagStatusActive).
		Where("effective_to IS NOT NULL AND effective_to < ?", day).
		Update("status", enums.TagStatusExpired)
	return res.RowsAffected, res.Error
}
