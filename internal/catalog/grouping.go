package catalog

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
)

// AttributeSpec captures, per attribute, whether it affects price and whether
// its value appears in the item name.
type AttributeSpec struct {
	AffectsPrice bool
	InItemName   bool
}

// VariantGroup is one collapsed grid row: variants of the same parent that
// share every price-affecting attribute value.
type VariantGroup struct {
	Representative models.Item
	MemberIDs      []uuid.UUID
	MemberCodes    []string
	DisplayName    string
	VariantCount   int
}

// PriceSignature builds the canonical price-affecting attribute fingerprint
// for one item: sorted attribute=value pairs restricted to attributes flagged
// as affecting price. Items with equal signatures under the same parent are
// guaranteed to carry identical prices.
func PriceSignature(parentID *uuid.UUID, values map[string]string, specs map[string]AttributeSpec) string {
	pairs := make([]string, 0, len(values))
	for attr, value := range values {
		spec, known := specs[attr]
		if known && !spec.AffectsPrice {
			continue
		}
		pairs = append(pairs, attr+"="+value)
	}
	sort.Strings(pairs)

	prefix := ""
	if parentID != nil {
		prefix = parentID.String() + "|"
	}
	return prefix + strings.Join(pairs, "|")
}

// GroupVariants collapses items into variant groups keyed by price signature.
// Items without a parent form singleton groups. Output order follows the
// input order of each group's first member.
func GroupVariants(items []models.Item, valuesByItem map[uuid.UUID]map[string]string, specs map[string]AttributeSpec) []VariantGroup {
	groups := make(map[string]*VariantGroup)
	var order []string

	for i := range items {
		item := items[i]
		key := item.ID.String()
		if item.ParentItemID != nil {
			key = PriceSignature(item.ParentItemID, valuesByItem[item.ID], specs)
		}

		group, ok := groups[key]
		if !ok {
			group = &VariantGroup{
				Representative: item,
				DisplayName:    StripNonPriceValues(displayName(item), valuesByItem[item.ID], specs),
			}
			groups[key] = group
			order = append(order, key)
		}
		group.MemberIDs = append(group.MemberIDs, item.ID)
		group.MemberCodes = append(group.MemberCodes, item.Code)
		group.VariantCount++
	}

	out := make([]VariantGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}

// StripNonPriceValues removes the values of non-price-affecting, in-name
// attributes from a display name, so a collapsed group is not labelled with
// one member's colour or finish.
func StripNonPriceValues(name string, values map[string]string, specs map[string]AttributeSpec) string {
	for attr, value := range values {
		spec, known := specs[attr]
		if !known || spec.AffectsPrice || !spec.InItemName {
			continue
		}
		name = strings.ReplaceAll(name, value, "")
	}
	return strings.Join(strings.Fields(name), " ")
}

func displayName(item models.Item) string {
	if item.DisplayName != "" {
		return item.DisplayName
	}
	return item.Name
}
