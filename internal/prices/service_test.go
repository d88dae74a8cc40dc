package prices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/keylock"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type stubRepo struct {
	records      map[uuid.UUID]*models.PriceRecord
	liveEntryFor map[uuid.UUID]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: make(map[uuid.UUID]*models.PriceRecord)}
}

func (s *stubRepo) Create(_ context.Context, record *models.PriceRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()
	cpy := *record
	s.records[record.ID] = &cpy
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PriceRecord, error) {
	if r, ok := s.records[id]; ok {
		cpy := *r
		return &cpy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) Update(_ context.Context, record *models.PriceRecord) error {
	cpy := *record
	s.records[record.ID] = &cpy
	return nil
}

func (s *stubRepo) FindLiveByKey(_ context.Context, itemID, channelID uuid.UUID, companyID *uuid.UUID, excludeID uuid.UUID) ([]models.PriceRecord, error) {
	var out []models.PriceRecord
	for _, r := range s.records {
		if r.ID == excludeID || r.ItemID != itemID || r.ChannelID != channelID {
			continue
		}
		if !r.Status.IsLive() {
			continue
		}
		if (r.CompanyID == nil) != (companyID == nil) {
			continue
		}
		if r.CompanyID != nil && companyID != nil && *r.CompanyID != *companyID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRepo) FindLiveByItem(_ context.Context, itemID uuid.UUID) ([]models.PriceRecord, error) {
	var out []models.PriceRecord
	for _, r := range s.records {
		if r.ItemID == itemID && r.Status.IsLive() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) List(_ context.Context, itemID uuid.UUID, _ pagination.Page) ([]models.PriceRecord, int64, error) {
	var out []models.PriceRecord
	for _, r := range s.records {
		if r.ItemID == itemID {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.records, id)
	return nil
}

func (s *stubRepo) CountLiveListEntries(_ context.Context, sourcePriceID uuid.UUID, _ time.Time) (int64, error) {
	return s.liveEntryFor[sourcePriceID], nil
}

type stubSink struct {
	upserts []uuid.UUID
	err     error
}

func (s *stubSink) UpsertPrice(_ context.Context, record *models.PriceRecord) error {
	if s.err != nil {
		return s.err
	}
	s.upserts = append(s.upserts, record.ID)
	return nil
}

func newTestService(t *testing.T, repo *stubRepo, sink syncSink) Service {
	t.Helper()
	svc, err := NewService(repo, keylock.NewLocalLocker(time.Second), sink, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func saveInput(itemID, channelID uuid.UUID) SavePriceInput {
	to := date(2024, 1, 31)
	return SavePriceInput{
		ItemID:        itemID,
		ChannelID:     channelID,
		MRP:           decimal.NewFromInt(1000),
		MOP:           decimal.NewFromInt(900),
		SellingPrice:  decimal.NewFromInt(800),
		EffectiveFrom: date(2024, 1, 1),
		EffectiveTo:   &to,
		AsOf:          date(2024, 1, 10),
	}
}

func TestSaveComputesActiveStatus(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	dto, err := svc.Save(context.Background(), saveInput(uuid.New(), uuid.New()))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if dto.Status != enums.PriceStatusActive {
		t.Fatalf("expected active, got %s", dto.Status)
	}
}

func TestSaveRejectsHierarchyViolation(t *testing.T) {
	svc := newTestService(t, newStubRepo(), nil)
	input := saveInput(uuid.New(), uuid.New())
	input.MOP = decimal.NewFromInt(700) // below selling price

	_, err := svc.Save(context.Background(), input)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodePriceHierarchy {
		t.Fatalf("expected hierarchy error, got %v", err)
	}
}

func TestSaveRejectsNonPositiveSellingPrice(t *testing.T) {
	svc := newTestService(t, newStubRepo(), nil)
	input := saveInput(uuid.New(), uuid.New())
	input.SellingPrice = decimal.Zero

	_, err := svc.Save(context.Background(), input)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInvalidPrice {
		t.Fatalf("expected invalid price error, got %v", err)
	}
}

func TestSaveRejectsOverlapNamingConflict(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)
	itemID, channelID := uuid.New(), uuid.New()

	first, err := svc.Save(context.Background(), saveInput(itemID, channelID))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := saveInput(itemID, channelID)
	second.EffectiveFrom = date(2024, 1, 15)
	to := date(2024, 2, 15)
	second.EffectiveTo = &to

	_, err = svc.Save(context.Background(), second)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeOverlap {
		t.Fatalf("expected overlap error, got %v", err)
	}
	details, ok := appErr.Details().(map[string]any)
	if !ok {
		t.Fatal("expected conflicting ids in details")
	}
	ids, _ := details["conflicting_ids"].([]string)
	if len(ids) != 1 || ids[0] != first.ID.String() {
		t.Fatalf("expected conflict naming %s, got %v", first.ID, ids)
	}

	// Prior state untouched.
	if len(repo.records) != 1 {
		t.Fatalf("rejected write must not persist, have %d records", len(repo.records))
	}
}

func TestSaveAllowsAdjacentWindows(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)
	itemID, channelID := uuid.New(), uuid.New()

	if _, err := svc.Save(context.Background(), saveInput(itemID, channelID)); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := saveInput(itemID, channelID)
	second.EffectiveFrom = date(2024, 2, 1)
	to := date(2024, 2, 29)
	second.EffectiveTo = &to
	if _, err := svc.Save(context.Background(), second); err != nil {
		t.Fatalf("adjacent save should succeed: %v", err)
	}
}

func TestSaveDraftSkipsOverlapCheck(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)
	itemID, channelID := uuid.New(), uuid.New()

	if _, err := svc.Save(context.Background(), saveInput(itemID, channelID)); err != nil {
		t.Fatalf("first save: %v", err)
	}

	draft := saveInput(itemID, channelID)
	draft.Draft = true
	dto, err := svc.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("draft save: %v", err)
	}
	if dto.Status != enums.PriceStatusDraft {
		t.Fatalf("expected draft, got %s", dto.Status)
	}
}

func TestSaveDifferentCompaniesDoNotConflict(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)
	itemID, channelID := uuid.New(), uuid.New()
	companyX, companyY := uuid.New(), uuid.New()

	first := saveInput(itemID, channelID)
	first.CompanyID = &companyX
	if _, err := svc.Save(context.Background(), first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := saveInput(itemID, channelID)
	second.CompanyID = &companyY
	if _, err := svc.Save(context.Background(), second); err != nil {
		t.Fatalf("different-company save should succeed: %v", err)
	}
}

func TestApproveTransitionsDraftAndSyncs(t *testing.T) {
	repo := newStubRepo()
	sink := &stubSink{}
	svc := newTestService(t, repo, sink)
	itemID, channelID := uuid.New(), uuid.New()

	draft := saveInput(itemID, channelID)
	draft.Draft = true
	dto, err := svc.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}

	result, err := svc.Approve(context.Background(), dto.ID, "pricing.lead", date(2024, 1, 10))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result.Record.Status != enums.PriceStatusActive {
		t.Fatalf("expected active after approve, got %s", result.Record.Status)
	}
	if result.Record.Approver == nil || *result.Record.Approver != "pricing.lead" {
		t.Fatal("approver not recorded")
	}
	if len(sink.upserts) != 1 {
		t.Fatalf("expected one sink upsert, got %d", len(sink.upserts))
	}
}

func TestApproveFutureWindowBecomesScheduled(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	draft := saveInput(uuid.New(), uuid.New())
	draft.Draft = true
	dto, _ := svc.Save(context.Background(), draft)

	result, err := svc.Approve(context.Background(), dto.ID, "pricing.lead", date(2023, 12, 1))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result.Record.Status != enums.PriceStatusScheduled {
		t.Fatalf("expected scheduled, got %s", result.Record.Status)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	dto, _ := svc.Save(context.Background(), saveInput(uuid.New(), uuid.New()))
	first, err := svc.Approve(context.Background(), dto.ID, "pricing.lead", date(2024, 1, 10))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	second, err := svc.Approve(context.Background(), dto.ID, "someone.else", date(2024, 1, 11))
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if second.Record.Status != first.Record.Status {
		t.Fatal("approve must be idempotent")
	}
}

func TestApproveSinkFailureIsWarningNotError(t *testing.T) {
	repo := newStubRepo()
	sink := &stubSink{err: gorm.ErrInvalidDB}
	svc := newTestService(t, repo, sink)

	draft := saveInput(uuid.New(), uuid.New())
	draft.Draft = true
	dto, _ := svc.Save(context.Background(), draft)

	result, err := svc.Approve(context.Background(), dto.ID, "pricing.lead", date(2024, 1, 10))
	if err != nil {
		t.Fatalf("approve must commit despite sink failure: %v", err)
	}
	if result.SyncWarning == "" {
		t.Fatal("expected a sync warning")
	}
	if result.Record.Status != enums.PriceStatusActive {
		t.Fatalf("record must still transition, got %s", result.Record.Status)
	}
}

func TestExpireIfDueIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	dto, _ := svc.Save(context.Background(), saveInput(uuid.New(), uuid.New()))

	// Not yet due.
	out, err := svc.ExpireIfDue(context.Background(), dto.ID, date(2024, 1, 20))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if out.Status != enums.PriceStatusActive {
		t.Fatalf("record should stay active, got %s", out.Status)
	}

	// Due: window closed Jan 31.
	out, err = svc.ExpireIfDue(context.Background(), dto.ID, date(2024, 2, 1))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if out.Status != enums.PriceStatusExpired {
		t.Fatalf("expected expired, got %s", out.Status)
	}

	// Re-run yields the same end state.
	out, err = svc.ExpireIfDue(context.Background(), dto.ID, date(2024, 2, 2))
	if err != nil {
		t.Fatalf("re-expire: %v", err)
	}
	if out.Status != enums.PriceStatusExpired {
		t.Fatalf("expected expired after re-run, got %s", out.Status)
	}
}

func TestClonePricingCopiesLiveRecordsAsDrafts(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	source := uuid.New()
	target := uuid.New()
	channelA := uuid.New()
	channelB := uuid.New()

	in := saveInput(source, channelA)
	in.AsOf = date(2024, 1, 10)
	if _, err := svc.Save(context.Background(), in); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	in = saveInput(source, channelB)
	in.AsOf = date(2024, 1, 10)
	if _, err := svc.Save(context.Background(), in); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	// Drafts are not cloned.
	draft := saveInput(source, uuid.New())
	draft.Draft = true
	if _, err := svc.Save(context.Background(), draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	result, err := svc.ClonePricing(context.Background(), CloneInput{SourceItemID: source, TargetItemID: target})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("expected 2 clones, got %d", result.Created)
	}

	clones, _, err := svc.List(context.Background(), target, pagination.Page{Number: 1, Length: 10})
	if err != nil {
		t.Fatalf("list clones: %v", err)
	}
	if len(clones) != 2 {
		t.Fatalf("expected 2 records on target, got %d", len(clones))
	}
	for _, c := range clones {
		if c.Status != enums.PriceStatusDraft {
			t.Fatalf("clones must land as drafts, got %s", c.Status)
		}
	}
}

func TestClonePricingOverridesWindow(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	source := uuid.New()
	target := uuid.New()
	in := saveInput(source, uuid.New())
	in.AsOf = date(2024, 1, 10)
	if _, err := svc.Save(context.Background(), in); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	from := date(2024, 3, 1)
	result, err := svc.ClonePricing(context.Background(), CloneInput{
		SourceItemID:  source,
		TargetItemID:  target,
		EffectiveFrom: &from,
	})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected 1 clone, got %d", result.Created)
	}

	clones, _, _ := svc.List(context.Background(), target, pagination.Page{Number: 1, Length: 10})
	if !clones[0].EffectiveFrom.Equal(from) {
		t.Fatalf("expected window to start %s, got %s", from, clones[0].EffectiveFrom)
	}
	if clones[0].EffectiveTo != nil {
		t.Fatal("overridden window must be open-ended")
	}
}

func TestClonePricingRejectsSameItem(t *testing.T) {
	svc := newTestService(t, newStubRepo(), nil)
	id := uuid.New()
	_, err := svc.ClonePricing(context.Background(), CloneInput{SourceItemID: id, TargetItemID: id})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteRemovesUnreferencedRecord(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	in := saveInput(uuid.New(), uuid.New())
	in.AsOf = date(2024, 1, 10)
	dto, err := svc.Save(context.Background(), in)
	if err != nil {
		t.Fatalf("seed save: %v", err)
	}

	if err := svc.Delete(context.Background(), dto.ID, date(2024, 1, 15)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), dto.ID); pkgerrors.As(err) == nil {
		t.Fatal("expected record gone after delete")
	}
}

func TestDeleteBlockedByLiveListEntry(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	in := saveInput(uuid.New(), uuid.New())
	in.AsOf = date(2024, 1, 10)
	dto, err := svc.Save(context.Background(), in)
	if err != nil {
		t.Fatalf("seed save: %v", err)
	}
	repo.liveEntryFor = map[uuid.UUID]int64{dto.ID: 1}

	err = svc.Delete(context.Background(), dto.ID, date(2024, 1, 15))
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), dto.ID); err != nil {
		t.Fatalf("record must survive a blocked delete: %v", err)
	}
}

func TestDeleteMissingRecordIsNotFound(t *testing.T) {
	svc := newTestService(t, newStubRepo(), nil)
	err := svc.Delete(context.Background(), uuid.New(), date(2024, 1, 15))
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
