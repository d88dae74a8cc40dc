package offers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.OfferRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

type seedOfferOpts struct {
	scope     enums.OfferScope
	itemID    *uuid.UUID
	targetRef *string
	channelID *uuid.UUID
	companyID *uuid.UUID
	status    enums.OfferStatus
	approval  enums.ApprovalStatus
	startsAt  time.Time
	endsAt    time.Time
}

func seedOffer(t *testing.T, db *gorm.DB, opts seedOfferOpts) *models.OfferRecord {
	t.Helper()
	if opts.status == "" {
		opts.status = enums.OfferStatusActive
	}
	if opts.approval == "" {
		opts.approval = enums.ApprovalStatusApproved
	}
	if opts.startsAt.IsZero() {
		opts.startsAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.endsAt.IsZero() {
		opts.endsAt = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	}
	record := &models.OfferRecord{
		ID:             uuid.New(),
		Name:           "seeded offer",
		Scope:          opts.scope,
		ItemID:         opts.itemID,
		TargetRef:      opts.targetRef,
		ChannelID:      opts.channelID,
		CompanyID:      opts.companyID,
		OfferType:      "Bank Offer",
		ValueType:      enums.OfferValueAmount,
		Value:          decimal.NewFromInt(100),
		Priority:       1,
		StartsAt:       opts.startsAt,
		EndsAt:         opts.endsAt,
		Status:         opts.status,
		ApprovalStatus: opts.approval,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return record
}

func asOfJune(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestFindApplicableCompanyScoping(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	itemID := uuid.New()
	companyX, companyY := uuid.New(), uuid.New()

	allCompanies := seedOffer(t, db, seedOfferOpts{
		scope:  enums.OfferScopeItem,
		itemID: &itemID,
	})
	scopedX := seedOffer(t, db, seedOfferOpts{
		scope:     enums.OfferScopeItem,
		itemID:    &itemID,
		companyID: &companyX,
	})

	find := func(companyID *uuid.UUID) []models.OfferRecord {
		t.Helper()
		got, err := repo.FindApplicable(ctx, ApplicableFilters{
			ItemIDs:   []uuid.UUID{itemID},
			CompanyID: companyID,
			AsOf:      asOfJune(t),
		})
		if err != nil {
			t.Fatalf("find applicable: %v", err)
		}
		return got
	}

	// Unfiltered view sees both; company X sees both; company Y sees only
	// the null-company offer.
	if got := find(nil); len(got) != 2 {
		t.Fatalf("unfiltered view: expected 2 offers, got %d", len(got))
	}
	gotX := find(&companyX)
	if len(gotX) != 2 {
		t.Fatalf("company X: expected 2 offers, got %d", len(gotX))
	}
	seen := map[uuid.UUID]bool{gotX[0].ID: true, gotX[1].ID: true}
	if !seen[allCompanies.ID] || !seen[scopedX.ID] {
		t.Fatalf("company X must see both offers, got %v", seen)
	}
	gotY := find(&companyY)
	if len(gotY) != 1 || gotY[0].ID != allCompanies.ID {
		t.Fatalf("company Y must see only the null-company offer, got %d rows", len(gotY))
	}
}

func TestFindApplicableChannelScoping(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	itemID := uuid.New()
	web, store := uuid.New(), uuid.New()

	everywhere := seedOffer(t, db, seedOfferOpts{
		scope:  enums.OfferScopeItem,
		itemID: &itemID,
	})
	seedOffer(t, db, seedOfferOpts{
		scope:     enums.OfferScopeItem,
		itemID:    &itemID,
		channelID: &web,
	})

	got, err := repo.FindApplicable(ctx, ApplicableFilters{
		ItemIDs:   []uuid.UUID{itemID},
		ChannelID: &store,
		AsOf:      asOfJune(t),
	})
	if err != nil {
		t.Fatalf("find applicable: %v", err)
	}
	if len(got) != 1 || got[0].ID != everywhere.ID {
		t.Fatalf("store channel must see only the null-channel offer, got %d rows", len(got))
	}

	got, err = repo.FindApplicable(ctx, ApplicableFilters{
		ItemIDs:   []uuid.UUID{itemID},
		ChannelID: &web,
		AsOf:      asOfJune(t),
	})
	if err != nil {
		t.Fatalf("find applicable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("web channel: expected 2 offers, got %d", len(got))
	}
}

func TestFindApplicableScopeAndWindowFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	itemID := uuid.New()
	brand := "Acme"

	brandOffer := seedOffer(t, db, seedOfferOpts{
		scope:     enums.OfferScopeBrand,
		targetRef: &brand,
	})
	txnOffer := seedOffer(t, db, seedOfferOpts{
		scope: enums.OfferScopeTransaction,
	})
	// Outside the window, pending, or scoped to an unrelated brand: all out.
	seedOffer(t, db, seedOfferOpts{
		scope:    enums.OfferScopeItem,
		itemID:   &itemID,
		startsAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		endsAt:   time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
		status:   enums.OfferStatusScheduled,
	})
	seedOffer(t, db, seedOfferOpts{
		scope:    enums.OfferScopeItem,
		itemID:   &itemID,
		status:   enums.OfferStatusDraft,
		approval: enums.ApprovalStatusPending,
	})
	other := "Other"
	seedOffer(t, db, seedOfferOpts{
		scope:     enums.OfferScopeBrand,
		targetRef: &other,
	})

	got, err := repo.FindApplicable(ctx, ApplicableFilters{
		ItemIDs: []uuid.UUID{itemID},
		Brands:  []string{brand},
		AsOf:    asOfJune(t),
	})
	if err != nil {
		t.Fatalf("find applicable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected brand + transaction offers, got %d", len(got))
	}
	ids := map[uuid.UUID]bool{got[0].ID: true, got[1].ID: true}
	if !ids[brandOffer.ID] || !ids[txnOffer.ID] {
		t.Fatalf("unexpected applicable set: %v", ids)
	}
}
