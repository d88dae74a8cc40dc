package reckoner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/internal/catalog"
	"github.com/gostackhq/reckoner-backend/internal/channels"
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/internal/prices"
	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/keylock"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type catalogService interface {
	GetByCode(ctx context.Context, code string) (*models.Item, error)
	List(ctx context.Context, filters catalog.ItemFilters, page pagination.Page) ([]models.Item, int64, error)
	AttributeSpecs(ctx context.Context, subCategory string) (map[string]catalog.AttributeSpec, error)
	ValuesByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]map[string]string, error)
	Siblings(ctx context.Context, item *models.Item) ([]models.Item, error)
}

type channelService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*channels.ChannelDTO, error)
	ListSelling(ctx context.Context) ([]channels.ChannelDTO, error)
}

type priceReader interface {
	FindCurrent(ctx context.Context, itemIDs []uuid.UUID, channelID *uuid.UUID, companyID *uuid.UUID, asOf time.Time) ([]models.PriceRecord, error)
	FindLiveByKey(ctx context.Context, itemID, channelID uuid.UUID, companyID *uuid.UUID, excludeID uuid.UUID) ([]models.PriceRecord, error)
	CreateWithTx(tx *gorm.DB, record *models.PriceRecord) error
	UpdateWithTx(tx *gorm.DB, record *models.PriceRecord) error
}

type offerReader interface {
	FindApplicable(ctx context.Context, filters offers.ApplicableFilters) ([]models.OfferRecord, error)
}

type tagReader interface {
	FindLiveForItems(ctx context.Context, itemIDs []uuid.UUID, companyID *uuid.UUID, asOf time.Time) ([]models.CommercialTag, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the resolution facade: it joins the price store, the offer
// store, and the resolver into single-item and bulk-grid answers, and owns
// variant price propagation.
type Service interface {
	GetActivePrice(ctx context.Context, itemCode string, channelID uuid.UUID, companyID *uuid.UUID, asOf time.Time) (*ActivePriceDTO, error)
	GetGrid(ctx context.Context, filters GridFilters) (*Grid, error)
	SavePriceWithPropagation(ctx context.Context, input SavePropagationInput) (*PropagationResult, error)
}

type service struct {
	catalog  catalogService
	channels channelService
	prices   priceReader
	offers   offerReader
	tags     tagReader
	locker   keylock.Locker
	tx       txRunner
}

// NewService builds the resolution facade.
func NewService(cat catalogService, ch channelService, pr priceReader, of offerReader, tags tagReader, locker keylock.Locker, tx txRunner) (Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if ch == nil {
		return nil, fmt.Errorf("channel service required")
	}
	if pr == nil {
		return nil, fmt.Errorf("price reader required")
	}
	if of == nil {
		return nil, fmt.Errorf("offer reader required")
	}
	if locker == nil {
		return nil, fmt.Errorf("key locker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{catalog: cat, channels: ch, prices: pr, offers: of, tags: tags, locker: locker, tx: tx}, nil
}

// SavePropagationInput captures a price save that may fan out to sibling
// variants sharing the same price-affecting attributes.
type SavePropagationInput struct {
	ItemCode      string
	ChannelID     uuid.UUID
	CompanyID     *uuid.UUID
	MRP           decimal.Decimal
	MOP           decimal.Decimal
	SellingPrice  decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Propagate     bool
	AsOf          time.Time
}

func (s *service) GetActivePrice(ctx context.Context, itemCode string, channelID uuid.UUID, companyID *uuid.UUID, asOf time.Time) (*ActivePriceDTO, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	item, err := s.catalog.GetByCode(ctx, itemCode)
	if err != nil {
		return nil, err
	}

	winners, err := s.prices.FindCurrent(ctx, []uuid.UUID{item.ID}, &channelID, companyID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current prices")
	}
	if len(winners) == 0 {
		return &ActivePriceDTO{Found: false, ItemCode: item.Code}, nil
	}
	winner := pickWinners(winners)[priceKey{item.ID, channelID}]
	if winner == nil {
		return &ActivePriceDTO{Found: false, ItemCode: item.Code}, nil
	}

	applicable, err := s.applicableOffers(ctx, []models.Item{*item}, &channelID, companyID, asOf)
	if err != nil {
		return nil, err
	}
	res := offers.Resolve(applicable[item.ID])

	hint := finalPriceHint(winner.SellingPrice, res)
	return &ActivePriceDTO{
		Found:          true,
		ItemCode:       item.Code,
		MRP:            &winner.MRP,
		MOP:            &winner.MOP,
		BasePrice:      &winner.SellingPrice,
		FinalPriceHint: &hint,
		OfferLabel:     res.Label,
		HasBankOffer:   hasOfferKind(applicable[item.ID], "bank"),
		HasBrandOffer:  hasOfferKind(applicable[item.ID], "brand"),
	}, nil
}

func (s *service) GetGrid(ctx context.Context, filters GridFilters) (*Grid, error) {
	asOf := filters.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	items, total, err := s.catalog.List(ctx, filters.Items, filters.Page)
	if err != nil {
		return nil, err
	}

	gridChannels, err := s.gridChannels(ctx, filters.ChannelID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}

	current, err := s.prices.FindCurrent(ctx, itemIDs, filters.ChannelID, filters.CompanyID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current prices")
	}
	winners := pickWinners(current)

	applicable, err := s.applicableOffers(ctx, items, filters.ChannelID, filters.CompanyID, asOf)
	if err != nil {
		return nil, err
	}

	tagsByItem, err := s.tagsByItem(ctx, itemIDs, filters.CompanyID, asOf)
	if err != nil {
		return nil, err
	}

	groups, err := s.groupRows(ctx, items, filters.GroupVariants)
	if err != nil {
		return nil, err
	}

	rows := make([]GridRow, 0, len(groups))
	for _, group := range groups {
		row := GridRow{
			ItemID:       group.Representative.ID,
			ItemCode:     group.Representative.Code,
			ItemName:     group.DisplayName,
			VariantCount: group.VariantCount,
			Tags:         tagsForGroup(group, tagsByItem),
			Cells:        make(map[uuid.UUID]*GridCell, len(gridChannels)),
		}
		if group.VariantCount > 1 {
			row.MemberCodes = group.MemberCodes
		}

		for _, ch := range gridChannels {
			// Group members are guaranteed identically priced; take the
			// first member that has a winning record.
			var winner *models.PriceRecord
			var winnerItem uuid.UUID
			for _, memberID := range group.MemberIDs {
				if w := winners[priceKey{memberID, ch.ID}]; w != nil {
					winner = w
					winnerItem = memberID
					break
				}
			}
			if winner == nil {
				continue
			}

			res := offers.Resolve(applicable[winnerItem])
			hint := finalPriceHint(winner.SellingPrice, res)
			row.Cells[ch.ID] = &GridCell{
				MRP:            winner.MRP,
				MOP:            winner.MOP,
				SellingPrice:   winner.SellingPrice,
				FinalPriceHint: &hint,
				OfferLabel:     res.Label,
				HasBankOffer:   hasOfferKind(applicable[winnerItem], "bank"),
				HasBrandOffer:  hasOfferKind(applicable[winnerItem], "brand"),
			}
		}
		rows = append(rows, row)
	}

	return &Grid{Rows: rows, Channels: gridChannels, Total: total}, nil
}

func (s *service) SavePriceWithPropagation(ctx context.Context, input SavePropagationInput) (*PropagationResult, error) {
	if err := prices.ValidateValues(input.MRP, input.MOP, input.SellingPrice); err != nil {
		return nil, err
	}
	if input.EffectiveFrom.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective_from is required")
	}
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	item, err := s.catalog.GetByCode(ctx, input.ItemCode)
	if err != nil {
		return nil, err
	}

	targets := []models.Item{*item}
	if input.Propagate {
		targets, err = s.catalog.Siblings(ctx, item)
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Code < targets[j].Code })

	// Locks are taken in sorted key order so two concurrent propagations
	// over overlapping sibling sets cannot deadlock.
	releases := make([]func(context.Context), 0, len(targets))
	defer func() {
		for _, release := range releases {
			release(ctx)
		}
	}()
	for _, target := range targets {
		release, err := s.locker.Acquire(ctx, prices.LockKey(target.ID, input.ChannelID, input.CompanyID))
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}

	from := dateOnly(input.EffectiveFrom)
	to := normalizeDatePtr(input.EffectiveTo)
	status := prices.ComputeStatus(from, to, false, asOf)

	type plannedWrite struct {
		record *models.PriceRecord
		update bool
	}
	var plan []plannedWrite

	for i := range targets {
		target := targets[i]
		existing, err := s.prices.FindLiveByKey(ctx, target.ID, input.ChannelID, input.CompanyID, uuid.Nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing prices")
		}

		var match *models.PriceRecord
		var conflicts []string
		for j := range existing {
			other := existing[j]
			if dateOnly(other.EffectiveFrom).Equal(from) {
				match = &existing[j]
				continue
			}
			if intervalsOverlap(from, to, dateOnly(other.EffectiveFrom), other.EffectiveTo) {
				conflicts = append(conflicts, other.ID.String())
			}
		}
		if len(conflicts) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeOverlap,
				fmt.Sprintf("propagation to %s overlaps existing record(s) %s", target.Code, strings.Join(conflicts, ", "))).
				WithDetails(map[string]any{"item_code": target.Code, "conflicting_ids": conflicts})
		}

		if match != nil {
			match.MRP = input.MRP
			match.MOP = input.MOP
			match.SellingPrice = input.SellingPrice
			match.EffectiveTo = to
			match.Status = status
			plan = append(plan, plannedWrite{record: match, update: true})
			continue
		}
		plan = append(plan, plannedWrite{record: &models.PriceRecord{
			ID:            uuid.New(),
			ItemID:        target.ID,
			ChannelID:     input.ChannelID,
			CompanyID:     input.CompanyID,
			MRP:           input.MRP,
			MOP:           input.MOP,
			SellingPrice:  input.SellingPrice,
			EffectiveFrom: from,
			EffectiveTo:   to,
			Status:        status,
		}})
	}

	// All sibling writes commit or none do: a mid-batch failure must never
	// leave variants priced inconsistently.
	result := &PropagationResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, write := range plan {
			if write.update {
				if err := s.prices.UpdateWithTx(tx, write.record); err != nil {
					return err
				}
				continue
			}
			if err := s.prices.CreateWithTx(tx, write.record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist propagated prices")
	}

	for i, write := range plan {
		if write.update {
			result.Updated++
		} else {
			result.Created++
		}
		result.TargetItems = append(result.TargetItems, targets[i].Code)
	}
	return result, nil
}

type priceKey struct {
	itemID    uuid.UUID
	channelID uuid.UUID
}

// pickWinners keeps the latest-effective_from record per (item, channel).
// Input is ordered effective_from desc, so the first hit per key wins.
func pickWinners(records []models.PriceRecord) map[priceKey]*models.PriceRecord {
	winners := make(map[priceKey]*models.PriceRecord, len(records))
	for i := range records {
		key := priceKey{records[i].ItemID, records[i].ChannelID}
		if _, taken := winners[key]; !taken {
			winners[key] = &records[i]
		}
	}
	return winners
}

func (s *service) gridChannels(ctx context.Context, channelID *uuid.UUID) ([]channels.ChannelDTO, error) {
	if channelID != nil {
		ch, err := s.channels.GetByID(ctx, *channelID)
		if err != nil {
			return nil, err
		}
		return []channels.ChannelDTO{*ch}, nil
	}
	return s.channels.ListSelling(ctx)
}

// applicableOffers loads the approved live offers for the item set and maps
// each item to its resolver inputs.
func (s *service) applicableOffers(ctx context.Context, items []models.Item, channelID *uuid.UUID, companyID *uuid.UUID, asOf time.Time) (map[uuid.UUID][]offers.Offer, error) {
	itemIDs := make([]uuid.UUID, 0, len(items))
	brandSet := make(map[string]bool)
	groupSet := make(map[string]bool)
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
		if item.Brand != nil {
			brandSet[*item.Brand] = true
		}
		if item.Category != nil {
			groupSet[*item.Category] = true
		}
	}

	records, err := s.offers.FindApplicable(ctx, offers.ApplicableFilters{
		ItemIDs:    itemIDs,
		Brands:     keys(brandSet),
		ItemGroups: keys(groupSet),
		ChannelID:  channelID,
		CompanyID:  companyID,
		AsOf:       asOf,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]offers.Offer, len(items))
	for _, item := range items {
		for i := range records {
			if offerTargets(&records[i], &item) {
				out[item.ID] = append(out[item.ID], offers.ToResolverOffer(&records[i]))
			}
		}
	}
	return out, nil
}

func (s *service) tagsByItem(ctx context.Context, itemIDs []uuid.UUID, companyID *uuid.UUID, asOf time.Time) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string)
	if s.tags == nil {
		return out, nil
	}
	rows, err := s.tags.FindLiveForItems(ctx, itemIDs, companyID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commercial tags")
	}
	for _, row := range rows {
		out[row.ItemID] = append(out[row.ItemID], row.Tag)
	}
	return out, nil
}

func (s *service) groupRows(ctx context.Context, items []models.Item, group bool) ([]catalog.VariantGroup, error) {
	if !group {
		groups := make([]catalog.VariantGroup, 0, len(items))
		for _, item := range items {
			name := item.DisplayName
			if name == "" {
				name = item.Name
			}
			groups = append(groups, catalog.VariantGroup{
				Representative: item,
				MemberIDs:      []uuid.UUID{item.ID},
				MemberCodes:    []string{item.Code},
				DisplayName:    name,
				VariantCount:   1,
			})
		}
		return groups, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	values, err := s.catalog.ValuesByItem(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	// Attribute specs are per sub-category; merge the sets for the page.
	specs := make(map[string]catalog.AttributeSpec)
	seen := make(map[string]bool)
	for _, item := range items {
		if item.SubCategory == nil || seen[*item.SubCategory] {
			continue
		}
		seen[*item.SubCategory] = true
		subSpecs, err := s.catalog.AttributeSpecs(ctx, *item.SubCategory)
		if err != nil {
			return nil, err
		}
		for name, spec := range subSpecs {
			specs[name] = spec
		}
	}

	return catalog.GroupVariants(items, values, specs), nil
}

func offerTargets(offer *models.OfferRecord, item *models.Item) bool {
	switch offer.Scope {
	case enums.OfferScopeItem:
		return offer.ItemID != nil && *offer.ItemID == item.ID
	case enums.OfferScopeBrand:
		return offer.TargetRef != nil && item.Brand != nil && *offer.TargetRef == *item.Brand
	case enums.OfferScopeItemGroup:
		return offer.TargetRef != nil && item.Category != nil && *offer.TargetRef == *item.Category
	case enums.OfferScopeTransaction:
		return true
	}
	return false
}

// hasOfferKind reports whether any applicable offer carries the kind in its
// free-form type ("Bank Offer", "brand offer"). The flag reflects
// availability, not whether the offer won resolution.
func hasOfferKind(applicable []offers.Offer, kind string) bool {
	for _, o := range applicable {
		if strings.Contains(strings.ToLower(o.OfferType), kind) {
			return true
		}
	}
	return false
}

// finalPriceHint applies the resolution to a base price: overrides replace
// it, discounts subtract from it, and the result never goes below zero.
func finalPriceHint(base decimal.Decimal, res offers.Resolution) decimal.Decimal {
	if res.Price != nil {
		return *res.Price
	}
	hint := base
	if res.PercentTotal.IsPositive() {
		hint = hint.Sub(base.Mul(res.PercentTotal).Div(decimal.NewFromInt(100)))
	}
	if res.AmountTotal.IsPositive() {
		hint = hint.Sub(res.AmountTotal)
	}
	if hint.IsNegative() {
		return decimal.Zero
	}
	return hint.Round(2)
}

func tagsForGroup(group catalog.VariantGroup, tagsByItem map[uuid.UUID][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, memberID := range group.MemberIDs {
		for _, tag := range tagsByItem[memberID] {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func intervalsOverlap(fromA time.Time, toA *time.Time, fromB time.Time, toB *time.Time) bool {
	if toA != nil && dateOnly(*toA).Before(fromB) {
		return false
	}
	if toB != nil && dateOnly(*toB).Before(fromA) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}
