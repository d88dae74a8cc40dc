package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type catalogRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindByCode(ctx context.Context, code string) (*models.Item, error)
	List(ctx context.Context, filters ItemFilters, page pagination.Page) ([]models.Item, int64, error)
	FindByParent(ctx context.Context, parentID uuid.UUID) ([]models.Item, error)
	AttributeValues(ctx context.Context, itemIDs []uuid.UUID) ([]models.ItemAttributeValue, error)
	SubCategoryAttributes(ctx context.Context, subCategory string) ([]models.SubCategoryAttribute, error)
}

// Service answers the catalog questions the pricing engine needs: item
// lookups, variant sibling sets, and attribute specs per sub-category.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	GetByCode(ctx context.Context, code string) (*models.Item, error)
	List(ctx context.Context, filters ItemFilters, page pagination.Page) ([]models.Item, int64, error)
	AttributeSpecs(ctx context.Context, subCategory string) (map[string]AttributeSpec, error)
	ValuesByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]map[string]string, error)
	Siblings(ctx context.Context, item *models.Item) ([]models.Item, error)
}

type service struct {
	repo catalogRepository
}

// NewService builds the catalog read service.
func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Item, error) {
	item, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, filters ItemFilters, page pagination.Page) ([]models.Item, int64, error) {
	items, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, total, nil
}

// AttributeSpecs returns the attribute declarations for a sub-category keyed
// by attribute name. An empty sub-category yields an empty map.
func (s *service) AttributeSpecs(ctx context.Context, subCategory string) (map[string]AttributeSpec, error) {
	specs := make(map[string]AttributeSpec)
	if subCategory == "" {
		return specs, nil
	}
	rows, err := s.repo.SubCategoryAttributes(ctx, subCategory)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-category attributes")
	}
	for _, row := range rows {
		specs[row.Attribute] = AttributeSpec{
			AffectsPrice: row.AffectsPrice,
			InItemName:   row.InItemName,
		}
	}
	return specs, nil
}

// ValuesByItem loads attribute values for the given items keyed by item id.
func (s *service) ValuesByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]map[string]string, error) {
	rows, err := s.repo.AttributeValues(ctx, itemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attribute values")
	}
	out := make(map[uuid.UUID]map[string]string, len(itemIDs))
	for _, row := range rows {
		if out[row.ItemID] == nil {
			out[row.ItemID] = make(map[string]string)
		}
		out[row.ItemID][row.Attribute] = row.Value
	}
	return out, nil
}

// Siblings returns every enabled variant of item's parent sharing item's
// price-affecting attribute combination, item itself included. Items without
// a parent have no siblings beyond themselves.
func (s *service) Siblings(ctx context.Context, item *models.Item) ([]models.Item, error) {
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item is required")
	}
	if item.ParentItemID == nil {
		return []models.Item{*item}, nil
	}

	candidates, err := s.repo.FindByParent(ctx, *item.ParentItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sibling candidates")
	}

	subCategory := ""
	if item.SubCategory != nil {
		subCategory = *item.SubCategory
	}
	specs, err := s.AttributeSpecs(ctx, subCategory)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(candidates)+1)
	ids = append(ids, item.ID)
	for _, c := range candidates {
		if c.ID != item.ID {
			ids = append(ids, c.ID)
		}
	}
	values, err := s.ValuesByItem(ctx, ids)
	if err != nil {
		return nil, err
	}

	target := PriceSignature(item.ParentItemID, values[item.ID], specs)
	siblings := make([]models.Item, 0, len(candidates))
	seen := false
	for _, c := range candidates {
		if PriceSignature(c.ParentItemID, values[c.ID], specs) == target {
			siblings = append(siblings, c)
			if c.ID == item.ID {
				seen = true
			}
		}
	}
	if !seen {
		siblings = append(siblings, *item)
	}
	return siblings, nil
}
