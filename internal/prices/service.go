package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/keylock"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type priceRepository interface {
	Create(ctx context.Context, record *models.PriceRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PriceRecord, error)
	Update(ctx context.Context, record *models.PriceRecord) error
	FindLiveByKey(ctx context.Context, itemID, channelID uuid.UUID, companyID *uuid.UUID, excludeID uuid.UUID) ([]models.PriceRecord, error)
	FindLiveByItem(ctx context.Context, itemID uuid.UUID) ([]models.PriceRecord, error)
	List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]models.PriceRecord, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountLiveListEntries(ctx context.Context, sourcePriceID uuid.UUID, asOf time.Time) (int64, error)
}

// syncSink mirrors an approved price into the downstream price list.
// Failures are surfaced as warnings, never as write failures.
type syncSink interface {
	UpsertPrice(ctx context.Context, record *models.PriceRecord) error
}

// Service exposes price record operations.
type Service interface {
	Save(ctx context.Context, input SavePriceInput) (*PriceRecordDTO, error)
	Approve(ctx context.Context, id uuid.UUID, approver string, asOf time.Time) (*ApproveResult, error)
	ExpireIfDue(ctx context.Context, id uuid.UUID, asOf time.Time) (*PriceRecordDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*PriceRecordDTO, error)
	List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]PriceRecordDTO, int64, error)
	ClonePricing(ctx context.Context, input CloneInput) (*CloneResult, error)
	Delete(ctx context.Context, id uuid.UUID, asOf time.Time) error
}

type service struct {
	repo   priceRepository
	locker keylock.Locker
	sink   syncSink
	logg   *logger.Logger
}

// NewService builds a price service with the provided collaborators. The
// sink is optional; a nil sink skips downstream mirroring.
func NewService(repo priceRepository, locker keylock.Locker, sink syncSink, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("price repository required")
	}
	if locker == nil {
		return nil, fmt.Errorf("key locker required")
	}
	return &service{repo: repo, locker: locker, sink: sink, logg: logg}, nil
}

// SavePriceInput captures a create-or-update price submission. AsOf anchors
// every date comparison so callers and tests control the clock.
type SavePriceInput struct {
	ID            *uuid.UUID
	ItemID        uuid.UUID
	ChannelID     uuid.UUID
	CompanyID     *uuid.UUID
	MRP           decimal.Decimal
	MOP           decimal.Decimal
	SellingPrice  decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Draft         bool
	Notes         *string
	AsOf          time.Time
}

// ApproveResult carries the approved record plus any non-fatal downstream
// sync warning.
type ApproveResult struct {
	Record      *PriceRecordDTO `json:"record"`
	SyncWarning string          `json:"sync_warning,omitempty"`
}

// LockKey builds the advisory lock key for one pricing key.
func LockKey(itemID, channelID uuid.UUID, companyID *uuid.UUID) string {
	company := "all"
	if companyID != nil {
		company = companyID.String()
	}
	return strings.Join([]string{"price", itemID.String(), channelID.String(), company}, ":")
}

func (s *service) Save(ctx context.Context, input SavePriceInput) (*PriceRecordDTO, error) {
	if input.ItemID == uuid.Nil || input.ChannelID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item and channel are required")
	}
	if input.EffectiveFrom.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective_from is required")
	}
	if err := ValidateValues(input.MRP, input.MOP, input.SellingPrice); err != nil {
		return nil, err
	}
	if input.EffectiveTo != nil && truncateToDate(*input.EffectiveTo).Before(truncateToDate(input.EffectiveFrom)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective_to precedes effective_from")
	}

	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	// The overlap check and the write run as one critical section per key;
	// unrelated keys stay fully parallel.
	release, err := s.locker.Acquire(ctx, LockKey(input.ItemID, input.ChannelID, input.CompanyID))
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	var record *models.PriceRecord
	if input.ID != nil {
		record, err = s.repo.FindByID(ctx, *input.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price record not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price record")
		}
	} else {
		record = &models.PriceRecord{ID: uuid.New()}
	}

	status := ComputeStatus(input.EffectiveFrom, input.EffectiveTo, input.Draft, asOf)
	if status != enums.PriceStatusDraft {
		if err := s.checkOverlap(ctx, input, record.ID); err != nil {
			return nil, err
		}
	}

	record.ItemID = input.ItemID
	record.ChannelID = input.ChannelID
	record.CompanyID = input.CompanyID
	record.MRP = input.MRP
	record.MOP = input.MOP
	record.SellingPrice = input.SellingPrice
	record.EffectiveFrom = truncateToDate(input.EffectiveFrom)
	record.EffectiveTo = normalizeDatePtr(input.EffectiveTo)
	record.Status = status
	record.Notes = input.Notes

	if input.ID != nil {
		err = s.repo.Update(ctx, record)
	} else {
		err = s.repo.Create(ctx, record)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist price record")
	}
	return FromModel(record), nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, approver string, asOf time.Time) (*ApproveResult, error) {
	if approver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver is required")
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price record")
	}

	// Approve is idempotent: a record already out of Draft keeps its state.
	if record.Status == enums.PriceStatusDraft {
		release, err := s.locker.Acquire(ctx, LockKey(record.ItemID, record.ChannelID, record.CompanyID))
		if err != nil {
			return nil, err
		}
		defer release(ctx)

		input := SavePriceInput{
			ItemID:        record.ItemID,
			ChannelID:     record.ChannelID,
			CompanyID:     record.CompanyID,
			EffectiveFrom: record.EffectiveFrom,
			EffectiveTo:   record.EffectiveTo,
		}
		if err := s.checkOverlap(ctx, input, record.ID); err != nil {
			return nil, err
		}

		now := asOf
		record.Status = ComputeStatus(record.EffectiveFrom, record.EffectiveTo, false, asOf)
		record.Approver = &approver
		record.ApprovedAt = &now
		if err := s.repo.Update(ctx, record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve price record")
		}
	}

	result := &ApproveResult{Record: FromModel(record)}
	if s.sink != nil && record.Status.IsLive() {
		if err := s.sink.UpsertPrice(ctx, record); err != nil {
			// Pricing truth lives here; sink failures surface as warnings.
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("price list sync failed for record %s: %v", record.ID, err))
			}
			result.SyncWarning = pkgerrors.Wrap(pkgerrors.CodeSyncWarning, err, "price list sync deferred").Error()
		}
	}
	return result, nil
}

// ExpireIfDue idempotently expires a record once its window has closed.
func (s *service) ExpireIfDue(ctx context.Context, id uuid.UUID, asOf time.Time) (*PriceRecordDTO, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price record")
	}

	if record.Status == enums.PriceStatusExpired || record.Status == enums.PriceStatusDraft {
		return FromModel(record), nil
	}
	if record.EffectiveTo == nil || !truncateToDate(*record.EffectiveTo).Before(truncateToDate(asOf)) {
		return FromModel(record), nil
	}

	record.Status = enums.PriceStatusExpired
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire price record")
	}
	return FromModel(record), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*PriceRecordDTO, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price record")
	}
	return FromModel(record), nil
}

func (s *service) List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]PriceRecordDTO, int64, error) {
	records, total, err := s.repo.List(ctx, itemID, page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price records")
	}
	out := make([]PriceRecordDTO, 0, len(records))
	for i := range records {
		out = append(out, *FromModel(&records[i]))
	}
	return out, total, nil
}

// Delete destroys a price record. Records still backing a live downstream
// price list entry cannot be removed; retract the entry first.
func (s *service) Delete(ctx context.Context, id uuid.UUID, asOf time.Time) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "price record not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price record")
	}

	if asOf.IsZero() {
		asOf = time.Now()
	}
	refs, err := s.repo.CountLiveListEntries(ctx, record.ID, asOf)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check downstream references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "price record is referenced by live price list entries").
			WithDetails(map[string]any{"price_list_entries": refs})
	}

	if err := s.repo.Delete(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price record")
	}
	return nil
}

// CloneInput names the source and target items for a pricing copy. When
// EffectiveFrom is set, every cloned record starts there with an open window;
// otherwise the source windows carry over.
type CloneInput struct {
	SourceItemID  uuid.UUID
	TargetItemID  uuid.UUID
	EffectiveFrom *time.Time
}

// CloneResult reports how many draft records a clone produced.
type CloneResult struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped,omitempty"`
}

// ClonePricing copies the source item's Active and Scheduled records onto the
// target item as Drafts. Drafts carry no overlap risk; conflicts surface at
// approval time.
func (s *service) ClonePricing(ctx context.Context, input CloneInput) (*CloneResult, error) {
	if input.SourceItemID == uuid.Nil || input.TargetItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and target items are required")
	}
	if input.SourceItemID == input.TargetItemID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and target items must differ")
	}

	sources, err := s.repo.FindLiveByItem(ctx, input.SourceItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source price records")
	}

	result := &CloneResult{}
	for i := range sources {
		src := &sources[i]
		clone := &models.PriceRecord{
			ID:            uuid.New(),
			ItemID:        input.TargetItemID,
			ChannelID:     src.ChannelID,
			CompanyID:     src.CompanyID,
			MRP:           src.MRP,
			MOP:           src.MOP,
			SellingPrice:  src.SellingPrice,
			EffectiveFrom: src.EffectiveFrom,
			EffectiveTo:   src.EffectiveTo,
			Status:        enums.PriceStatusDraft,
			Notes:         src.Notes,
		}
		if input.EffectiveFrom != nil {
			clone.EffectiveFrom = truncateToDate(*input.EffectiveFrom)
			clone.EffectiveTo = nil
		}
		if err := s.repo.Create(ctx, clone); err != nil {
			result.Skipped = append(result.Skipped, src.ID.String())
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("clone of price record %s failed: %v", src.ID, err))
			}
			continue
		}
		result.Created++
	}
	return result, nil
}

// checkOverlap rejects the candidate interval when any live record for the
// same key intersects it. Open-ended intervals extend to +infinity.
func (s *service) checkOverlap(ctx context.Context, input SavePriceInput, excludeID uuid.UUID) error {
	others, err := s.repo.FindLiveByKey(ctx, input.ItemID, input.ChannelID, input.CompanyID, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load overlap candidates")
	}

	from := truncateToDate(input.EffectiveFrom)
	var conflicts []string
	for _, other := range others {
		otherFrom := truncateToDate(other.EffectiveFrom)

		noOverlap := false
		if input.EffectiveTo != nil && truncateToDate(*input.EffectiveTo).Before(otherFrom) {
			noOverlap = true
		}
		if other.EffectiveTo != nil && truncateToDate(*other.EffectiveTo).Before(from) {
			noOverlap = true
		}
		if !noOverlap {
			conflicts = append(conflicts, other.ID.String())
		}
	}

	if len(conflicts) > 0 {
		return pkgerrors.New(pkgerrors.CodeOverlap,
			fmt.Sprintf("price window overlaps existing record(s) %s", strings.Join(conflicts, ", "))).
			WithDetails(map[string]any{"conflicting_ids": conflicts})
	}
	return nil
}

// ValidateValues enforces value sanity and the mrp >= mop >= selling
// hierarchy shared by direct saves and variant propagation.
func ValidateValues(mrp, mop, selling decimal.Decimal) error {
	if selling.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, "selling price must be positive")
	}
	if mrp.IsNegative() || mop.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, "prices must not be negative")
	}
	// Hierarchy holds only when all three values are set and positive.
	if mrp.IsPositive() && mop.IsPositive() {
		if mrp.LessThan(mop) {
			return pkgerrors.New(pkgerrors.CodePriceHierarchy, "mrp must be greater than or equal to mop")
		}
		if mop.LessThan(selling) {
			return pkgerrors.New(pkgerrors.CodePriceHierarchy, "mop must be greater than or equal to selling price")
		}
	}
	return nil
}

func normalizeDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := truncateToDate(*t)
	return &d
}
