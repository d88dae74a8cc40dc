package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is the catalog read model this service prices. The host catalog owns
// item lifecycle; rows here are a mirrored projection, never mutated by the
// pricing engine.
type Item struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string     `gorm:"column:code;not null;uniqueIndex"`
	Name         string     `gorm:"column:name;not null"`
	DisplayName  string     `gorm:"column:display_name;not null;default:''"`
	Brand        *string    `gorm:"column:brand"`
	Category     *string    `gorm:"column:category"`
	SubCategory  *string    `gorm:"column:sub_category"`
	Model        *string    `gorm:"column:model"`
	ParentItemID *uuid.UUID `gorm:"column:parent_item_id;type:uuid"`
	Disabled     bool       `gorm:"column:disabled;not null;default:false"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// ItemAttributeValue is one attribute name/value pair on a variant item.
type ItemAttributeValue struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null;index"`
	Attribute string    `gorm:"column:attribute;not null"`
	Value     string    `gorm:"column:value;not null"`
}

// SubCategoryAttribute declares, per sub-category, whether an attribute
// drives variant creation, appears in the item name, and affects price.
// Attributes with AffectsPrice=false are the ones variant grouping collapses.
type SubCategoryAttribute struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubCategory  string    `gorm:"column:sub_category;not null;index"`
	Attribute    string    `gorm:"column:attribute;not null"`
	IsVariant    bool      `gorm:"column:is_variant;not null;default:false"`
	InItemName   bool      `gorm:"column:in_item_name;not null;default:false"`
	AffectsPrice bool      `gorm:"column:affects_price;not null;default:true"`
}
