package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

// Repository reads the mirrored catalog projection. The pricing engine never
// writes item rows; the host catalog owns them.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to catalog lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ItemFilters narrows item listings for the resolution grid. Search matches
// code or name, case-insensitive.
type ItemFilters struct {
	Code        string
	Category    string
	SubCategory string
	Brand       string
	Model       string
	Search      string
}

// FindByID loads an item by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByCode loads an item by its unique code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns enabled items matching the filters plus the unpaginated total.
func (r *Repository) List(ctx context.Context, filters ItemFilters, page pagination.Page) ([]models.Item, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{}).Where("disabled = ?", false)
	if filters.Code != "" {
		query = query.Where("code = ?", filters.Code)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.SubCategory != "" {
		query = query.Where("sub_category = ?", filters.SubCategory)
	}
	if filters.Brand != "" {
		query = query.Where("brand = ?", filters.Brand)
	}
	if filters.Model != "" {
		query = query.Where("model = ?", filters.Model)
	}
	if filters.Search != "" {
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("(LOWER(code) LIKE ? OR LOWER(name) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Item
	err := query.
		Order("code asc").
		Offset(page.Offset()).
		Limit(page.Length).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindByParent returns all enabled items sharing the given parent.
func (r *Repository) FindByParent(ctx context.Context, parentID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("parent_item_id = ? AND disabled = ?", parentID, false).
		Order("code asc").
		Find(&items).Error
	return items, err
}

// AttributeValues returns the attribute pairs for the given items.
func (r *Repository) AttributeValues(ctx context.Context, itemIDs []uuid.UUID) ([]models.ItemAttributeValue, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var values []models.ItemAttributeValue
	err := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Order("attribute asc").
		Find(&values).Error
	return values, err
}

// SubCategoryAttributes returns the attribute declarations for a sub-category.
func (r *Repository) SubCategoryAttributes(ctx context.Context, subCategory string) ([]models.SubCategoryAttribute, error) {
	var attrs []models.SubCategoryAttribute
	err := r.db.WithContext(ctx).
		Where("sub_category = ?", subCategory).
		Order("attribute asc").
		Find(&attrs).Error
	return attrs, err
}
