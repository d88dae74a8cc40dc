package reckoner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/internal/catalog"
	"github.com/gostackhq/reckoner-backend/internal/channels"
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/keylock"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type stubCatalog struct {
	items    []models.Item
	values   map[uuid.UUID]map[string]string
	specs    map[string]catalog.AttributeSpec
	siblings map[uuid.UUID][]models.Item
}

func (s *stubCatalog) GetByCode(_ context.Context, code string) (*models.Item, error) {
	for i := range s.items {
		if s.items[i].Code == code {
			return &s.items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
}

func (s *stubCatalog) List(context.Context, catalog.ItemFilters, pagination.Page) ([]models.Item, int64, error) {
	return s.items, int64(len(s.items)), nil
}

func (s *stubCatalog) AttributeSpecs(context.Context, string) (map[string]catalog.AttributeSpec, error) {
	return s.specs, nil
}

func (s *stubCatalog) ValuesByItem(context.Context, []uuid.UUID) (map[uuid.UUID]map[string]string, error) {
	return s.values, nil
}

func (s *stubCatalog) Siblings(_ context.Context, item *models.Item) ([]models.Item, error) {
	if sibs, ok := s.siblings[item.ID]; ok {
		return sibs, nil
	}
	return []models.Item{*item}, nil
}

type stubChannels struct {
	list []channels.ChannelDTO
}

func (s *stubChannels) GetByID(_ context.Context, id uuid.UUID) (*channels.ChannelDTO, error) {
	for i := range s.list {
		if s.list[i].ID == id {
			return &s.list[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "channel not found")
}

func (s *stubChannels) ListSelling(context.Context) ([]channels.ChannelDTO, error) {
	return s.list, nil
}

type stubPrices struct {
	current []models.PriceRecord
	created []*models.PriceRecord
	updated []*models.PriceRecord
	failOn  int
	writes  int
}

func (s *stubPrices) FindCurrent(_ context.Context, itemIDs []uuid.UUID, channelID *uuid.UUID, companyID *uuid.UUID, _ time.Time) ([]models.PriceRecord, error) {
	wanted := make(map[uuid.UUID]bool)
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []models.PriceRecord
	for _, r := range s.current {
		if !wanted[r.ItemID] {
			continue
		}
		if channelID != nil && r.ChannelID != *channelID {
			continue
		}
		if companyID != nil && r.CompanyID != nil && *r.CompanyID != *companyID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *stubPrices) FindLiveByKey(_ context.Context, itemID, channelID uuid.UUID, companyID *uuid.UUID, _ uuid.UUID) ([]models.PriceRecord, error) {
	var out []models.PriceRecord
	for _, r := range s.current {
		if r.ItemID != itemID || r.ChannelID != channelID {
			continue
		}
		if (r.CompanyID == nil) != (companyID == nil) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *stubPrices) CreateWithTx(_ *gorm.DB, record *models.PriceRecord) error {
	s.writes++
	if s.failOn > 0 && s.writes >= s.failOn {
		return gorm.ErrInvalidDB
	}
	s.created = append(s.created, record)
	return nil
}

func (s *stubPrices) UpdateWithTx(_ *gorm.DB, record *models.PriceRecord) error {
	s.writes++
	if s.failOn > 0 && s.writes >= s.failOn {
		return gorm.ErrInvalidDB
	}
	s.updated = append(s.updated, record)
	return nil
}

type stubOffers struct {
	records []models.OfferRecord
}

func (s *stubOffers) FindApplicable(context.Context, offers.ApplicableFilters) ([]models.OfferRecord, error) {
	return s.records, nil
}

type stubTags struct {
	tags []models.CommercialTag
}

func (s *stubTags) FindLiveForItems(context.Context, []uuid.UUID, *uuid.UUID, time.Time) ([]models.CommercialTag, error) {
	return s.tags, nil
}

type stubTx struct {
	rolledBack bool
}

func (s *stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	if err := fn(nil); err != nil {
		s.rolledBack = true
		return err
	}
	return nil
}

func asOfDate() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func activeRecord(itemID, channelID uuid.UUID, selling int64) models.PriceRecord {
	return models.PriceRecord{
		ID:            uuid.New(),
		ItemID:        itemID,
		ChannelID:     channelID,
		MRP:           decimal.NewFromInt(selling + 200),
		MOP:           decimal.NewFromInt(selling + 100),
		SellingPrice:  decimal.NewFromInt(selling),
		EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:        enums.PriceStatusActive,
	}
}

func bankOffer(itemID uuid.UUID, amount int64) models.OfferRecord {
	return models.OfferRecord{
		ID:        uuid.New(),
		Scope:     enums.OfferScopeItem,
		ItemID:    &itemID,
		OfferType: "Bank Offer",
		ValueType: enums.OfferValueAmount,
		Value:     decimal.NewFromInt(amount),
		Priority:  1,
	}
}

func newFacade(t *testing.T, cat *stubCatalog, ch *stubChannels, pr *stubPrices, of *stubOffers, tags *stubTags, tx *stubTx) Service {
	t.Helper()
	svc, err := NewService(cat, ch, pr, of, tags, keylock.NewLocalLocker(time.Second), tx)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGetActivePriceResolvesOffer(t *testing.T) {
	itemID, channelID := uuid.New(), uuid.New()
	cat := &stubCatalog{items: []models.Item{{ID: itemID, Code: "PH-1", Name: "Phone"}}}
	pr := &stubPrices{current: []models.PriceRecord{activeRecord(itemID, channelID, 800)}}
	of := &stubOffers{records: []models.OfferRecord{bankOffer(itemID, 100)}}
	ch := &stubChannels{list: []channels.ChannelDTO{{ID: channelID, Name: "web"}}}

	svc := newFacade(t, cat, ch, pr, of, &stubTags{}, &stubTx{})

	dto, err := svc.GetActivePrice(context.Background(), "PH-1", channelID, nil, asOfDate())
	if err != nil {
		t.Fatalf("get active price: %v", err)
	}
	if !dto.Found {
		t.Fatal("expected a resolved price")
	}
	if !dto.BasePrice.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("unexpected base price %s", dto.BasePrice)
	}
	if !dto.FinalPriceHint.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected 700 hint, got %s", dto.FinalPriceHint)
	}
	if dto.OfferLabel != "₹100 off" {
		t.Fatalf("unexpected label %q", dto.OfferLabel)
	}
	if !dto.HasBankOffer || dto.HasBrandOffer {
		t.Fatalf("unexpected offer flags bank=%v brand=%v", dto.HasBankOffer, dto.HasBrandOffer)
	}
}

func TestOfferFlagsCoverLosingOffers(t *testing.T) {
	itemID, channelID := uuid.New(), uuid.New()
	cat := &stubCatalog{items: []models.Item{{ID: itemID, Code: "PH-1", Name: "Phone"}}}
	pr := &stubPrices{current: []models.PriceRecord{activeRecord(itemID, channelID, 800)}}

	// A brand offer outranks the bank offer, so only the brand discount
	// applies. Both flags still report availability.
	bank := bankOffer(itemID, 100)
	brand := models.OfferRecord{
		ID:        uuid.New(),
		Scope:     enums.OfferScopeItem,
		ItemID:    &itemID,
		OfferType: "Brand Offer",
		ValueType: enums.OfferValueAmount,
		Value:     decimal.NewFromInt(50),
		Priority:  5,
	}
	of := &stubOffers{records: []models.OfferRecord{bank, brand}}
	ch := &stubChannels{list: []channels.ChannelDTO{{ID: channelID, Name: "web"}}}

	svc := newFacade(t, cat, ch, pr, of, &stubTags{}, &stubTx{})

	dto, err := svc.GetActivePrice(context.Background(), "PH-1", channelID, nil, asOfDate())
	if err != nil {
		t.Fatalf("get active price: %v", err)
	}
	if dto.OfferLabel != "₹50 off" {
		t.Fatalf("unexpected label %q", dto.OfferLabel)
	}
	if !dto.HasBankOffer || !dto.HasBrandOffer {
		t.Fatalf("expected both flags set, bank=%v brand=%v", dto.HasBankOffer, dto.HasBrandOffer)
	}
}

func TestGetActivePriceNotFound(t *testing.T) {
	itemID, channelID := uuid.New(), uuid.New()
	cat := &stubCatalog{items: []models.Item{{ID: itemID, Code: "PH-1"}}}
	svc := newFacade(t, cat, &stubChannels{}, &stubPrices{}, &stubOffers{}, &stubTags{}, &stubTx{})

	dto, err := svc.GetActivePrice(context.Background(), "PH-1", channelID, nil, asOfDate())
	if err != nil {
		t.Fatalf("get active price: %v", err)
	}
	if dto.Found {
		t.Fatal("expected found=false without a live price")
	}
}

func TestGetGridCollapsesVariants(t *testing.T) {
	parent := uuid.New()
	channelID := uuid.New()
	sub := "Phones"
	red := models.Item{ID: uuid.New(), Code: "PH-RED", Name: "Phone 128GB Red", ParentItemID: &parent, SubCategory: &sub}
	blue := models.Item{ID: uuid.New(), Code: "PH-BLUE", Name: "Phone 128GB Blue", ParentItemID: &parent, SubCategory: &sub}

	cat := &stubCatalog{
		items: []models.Item{red, blue},
		values: map[uuid.UUID]map[string]string{
			red.ID:  {"Storage": "128GB", "Color": "Red"},
			blue.ID: {"Storage": "128GB", "Color": "Blue"},
		},
		specs: map[string]catalog.AttributeSpec{
			"Storage": {AffectsPrice: true, InItemName: true},
			"Color":   {AffectsPrice: false, InItemName: true},
		},
	}
	// Only the second member carries the record; the group must still price.
	pr := &stubPrices{current: []models.PriceRecord{activeRecord(blue.ID, channelID, 750)}}
	ch := &stubChannels{list: []channels.ChannelDTO{{ID: channelID, Name: "web"}}}
	tags := &stubTags{tags: []models.CommercialTag{{ItemID: red.ID, Tag: "Clearance", Status: enums.TagStatusActive}}}

	svc := newFacade(t, cat, ch, pr, &stubOffers{}, tags, &stubTx{})

	grid, err := svc.GetGrid(context.Background(), GridFilters{
		AsOf:          asOfDate(),
		GroupVariants: true,
		Page:          pagination.Page{Number: 1, Length: 50},
	})
	if err != nil {
		t.Fatalf("get grid: %v", err)
	}
	if len(grid.Rows) != 1 {
		t.Fatalf("expected one collapsed row, got %d", len(grid.Rows))
	}
	row := grid.Rows[0]
	if row.VariantCount != 2 {
		t.Fatalf("expected variant_count=2, got %d", row.VariantCount)
	}
	if row.ItemName != "Phone 128GB" {
		t.Fatalf("expected stripped name, got %q", row.ItemName)
	}
	cell := row.Cells[channelID]
	if cell == nil || !cell.SellingPrice.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("group must use the first member price hit, got %+v", cell)
	}
	if len(row.Tags) != 1 || row.Tags[0] != "Clearance" {
		t.Fatalf("expected member tags on the group row, got %v", row.Tags)
	}
}

func TestSavePriceWithPropagationCreatesSiblingRecords(t *testing.T) {
	parent := uuid.New()
	channelID := uuid.New()
	red := models.Item{ID: uuid.New(), Code: "PH-RED", ParentItemID: &parent}
	blue := models.Item{ID: uuid.New(), Code: "PH-BLUE", ParentItemID: &parent}

	cat := &stubCatalog{
		items:    []models.Item{red, blue},
		siblings: map[uuid.UUID][]models.Item{red.ID: {red, blue}},
	}
	pr := &stubPrices{}
	tx := &stubTx{}
	svc := newFacade(t, cat, &stubChannels{}, pr, &stubOffers{}, &stubTags{}, tx)

	result, err := svc.SavePriceWithPropagation(context.Background(), SavePropagationInput{
		ItemCode:      "PH-RED",
		ChannelID:     channelID,
		MRP:           decimal.NewFromInt(1000),
		MOP:           decimal.NewFromInt(900),
		SellingPrice:  decimal.NewFromInt(800),
		EffectiveFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Propagate:     true,
		AsOf:          asOfDate(),
	})
	if err != nil {
		t.Fatalf("save with propagation: %v", err)
	}
	if result.Created != 2 || result.Updated != 0 {
		t.Fatalf("expected 2 created, got %+v", result)
	}
	if len(result.TargetItems) != 2 {
		t.Fatalf("expected both target codes, got %v", result.TargetItems)
	}
	if len(pr.created) != 2 {
		t.Fatalf("expected 2 records written, got %d", len(pr.created))
	}
	// Identical values across siblings.
	for _, rec := range pr.created {
		if !rec.SellingPrice.Equal(decimal.NewFromInt(800)) || rec.Status != enums.PriceStatusActive {
			t.Fatalf("sibling record differs: %+v", rec)
		}
	}
}

func TestSavePriceWithPropagationUpdatesSameWindow(t *testing.T) {
	channelID := uuid.New()
	item := models.Item{ID: uuid.New(), Code: "PH-1"}
	existing := activeRecord(item.ID, channelID, 700)
	existing.EffectiveFrom = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cat := &stubCatalog{items: []models.Item{item}}
	pr := &stubPrices{current: []models.PriceRecord{existing}}
	svc := newFacade(t, cat, &stubChannels{}, pr, &stubOffers{}, &stubTags{}, &stubTx{})

	result, err := svc.SavePriceWithPropagation(context.Background(), SavePropagationInput{
		ItemCode:      "PH-1",
		ChannelID:     channelID,
		MRP:           decimal.NewFromInt(1000),
		MOP:           decimal.NewFromInt(900),
		SellingPrice:  decimal.NewFromInt(850),
		EffectiveFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		AsOf:          asOfDate(),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Updated != 1 || result.Created != 0 {
		t.Fatalf("expected in-place update, got %+v", result)
	}
	if len(pr.updated) != 1 || !pr.updated[0].SellingPrice.Equal(decimal.NewFromInt(850)) {
		t.Fatal("existing record not updated with new values")
	}
}

func TestSavePriceWithPropagationRejectsOverlap(t *testing.T) {
	channelID := uuid.New()
	item := models.Item{ID: uuid.New(), Code: "PH-1"}
	existing := activeRecord(item.ID, channelID, 700)
	existing.EffectiveFrom = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cat := &stubCatalog{items: []models.Item{item}}
	pr := &stubPrices{current: []models.PriceRecord{existing}}
	svc := newFacade(t, cat, &stubChannels{}, pr, &stubOffers{}, &stubTags{}, &stubTx{})

	_, err := svc.SavePriceWithPropagation(context.Background(), SavePropagationInput{
		ItemCode:      "PH-1",
		ChannelID:     channelID,
		MRP:           decimal.NewFromInt(1000),
		MOP:           decimal.NewFromInt(900),
		SellingPrice:  decimal.NewFromInt(850),
		EffectiveFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		AsOf:          asOfDate(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeOverlap {
		t.Fatalf("expected overlap error, got %v", err)
	}
	if len(pr.created)+len(pr.updated) != 0 {
		t.Fatal("rejected propagation must write nothing")
	}
}

func TestSavePriceWithPropagationAtomicOnFailure(t *testing.T) {
	parent := uuid.New()
	channelID := uuid.New()
	red := models.Item{ID: uuid.New(), Code: "PH-RED", ParentItemID: &parent}
	blue := models.Item{ID: uuid.New(), Code: "PH-BLUE", ParentItemID: &parent}

	cat := &stubCatalog{
		items:    []models.Item{red, blue},
		siblings: map[uuid.UUID][]models.Item{red.ID: {red, blue}},
	}
	pr := &stubPrices{failOn: 2}
	tx := &stubTx{}
	svc := newFacade(t, cat, &stubChannels{}, pr, &stubOffers{}, &stubTags{}, tx)

	_, err := svc.SavePriceWithPropagation(context.Background(), SavePropagationInput{
		ItemCode:      "PH-RED",
		ChannelID:     channelID,
		MRP:           decimal.NewFromInt(1000),
		MOP:           decimal.NewFromInt(900),
		SellingPrice:  decimal.NewFromInt(800),
		EffectiveFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Propagate:     true,
		AsOf:          asOfDate(),
	})
	if err == nil {
		t.Fatal("expected failure on second sibling write")
	}
	if !tx.rolledBack {
		t.Fatal("mid-batch failure must roll the transaction back")
	}
}
