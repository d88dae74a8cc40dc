package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/config"
	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
	"github.com/gostackhq/reckoner-backend/pkg/keylock"
	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

type offerRepository interface {
	Create(ctx context.Context, record *models.OfferRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OfferRecord, error)
	Update(ctx context.Context, record *models.OfferRecord) error
	List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]models.OfferRecord, int64, error)
	FindLiveByTypeKey(ctx context.Context, itemID uuid.UUID, channelID *uuid.UUID, offerType string, excludeID uuid.UUID) ([]models.OfferRecord, error)
	FindLiveByItem(ctx context.Context, itemID uuid.UUID) ([]models.OfferRecord, error)
	FindApplicable(ctx context.Context, filters ApplicableFilters) ([]models.OfferRecord, error)
}

// Service exposes offer record operations.
type Service interface {
	Save(ctx context.Context, input SaveOfferInput) (*OfferRecordDTO, error)
	Approve(ctx context.Context, id uuid.UUID, approver string, asOf time.Time) (*OfferRecordDTO, error)
	Reject(ctx context.Context, id uuid.UUID, approver string) (*OfferRecordDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OfferRecordDTO, error)
	List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]OfferRecordDTO, int64, error)
	FindApplicable(ctx context.Context, filters ApplicableFilters) ([]models.OfferRecord, error)
	CloneForItem(ctx context.Context, sourceItemID, targetItemID uuid.UUID, startsAt *time.Time) (int, error)
}

type service struct {
	repo   offerRepository
	locker keylock.Locker
	cfg    config.OffersConfig
}

// NewService builds an offer service.
func NewService(repo offerRepository, locker keylock.Locker, cfg config.OffersConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if locker == nil {
		return nil, fmt.Errorf("key locker required")
	}
	return &service{repo: repo, locker: locker, cfg: cfg}, nil
}

// SaveOfferInput captures a create-or-update offer submission.
type SaveOfferInput struct {
	ID            *uuid.UUID
	Name          string
	Scope         enums.OfferScope
	ItemID        *uuid.UUID
	TargetRef     *string
	ChannelID     *uuid.UUID
	CompanyID     *uuid.UUID
	OfferType     string
	ValueType     enums.OfferValueType
	Value         decimal.Decimal
	Priority      int
	Stackable     bool
	StartsAt      time.Time
	EndsAt        time.Time
	MinBillAmount *decimal.Decimal
	BankName      *string
	CardType      *string
	Notes         *string
	AsOf          time.Time
}

func lockKeyForOffer(itemID uuid.UUID, channelID *uuid.UUID, offerType string) string {
	channel := "all"
	if channelID != nil {
		channel = channelID.String()
	}
	return strings.Join([]string{"offer", itemID.String(), channel, offerType}, ":")
}

func (s *service) Save(ctx context.Context, input SaveOfferInput) (*OfferRecordDTO, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	var record *models.OfferRecord
	var err error
	if input.ID != nil {
		record, err = s.repo.FindByID(ctx, *input.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		if record.ApprovalStatus == enums.ApprovalStatusRejected {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rejected offers cannot be edited")
		}
	} else {
		record = &models.OfferRecord{
			ID:             uuid.New(),
			Status:         enums.OfferStatusDraft,
			ApprovalStatus: enums.ApprovalStatusPending,
		}
	}

	// Item-scoped offers hold the per-(item, channel, type) exclusivity
	// invariant under the same advisory-lock discipline as prices.
	if input.Scope == enums.OfferScopeItem {
		release, err := s.locker.Acquire(ctx, lockKeyForOffer(*input.ItemID, input.ChannelID, input.OfferType))
		if err != nil {
			return nil, err
		}
		defer release(ctx)

		if err := s.checkExclusivity(ctx, input, record.ID); err != nil {
			return nil, err
		}
	}

	record.Name = strings.TrimSpace(input.Name)
	record.Scope = input.Scope
	record.ItemID = input.ItemID
	record.TargetRef = input.TargetRef
	record.ChannelID = input.ChannelID
	record.CompanyID = input.CompanyID
	record.OfferType = input.OfferType
	record.ValueType = input.ValueType
	record.Value = input.Value
	record.Priority = input.Priority
	record.Stackable = input.Stackable
	record.StartsAt = input.StartsAt.UTC()
	record.EndsAt = input.EndsAt.UTC()
	record.MinBillAmount = input.MinBillAmount
	record.BankName = input.BankName
	record.CardType = input.CardType
	record.Notes = input.Notes

	// Status always follows the window; an approved offer edited into a
	// future window drops back to Scheduled.
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	record.Status = ComputeStatus(record.StartsAt, record.EndsAt, record.ApprovalStatus, asOf)

	if input.ID != nil {
		err = s.repo.Update(ctx, record)
	} else {
		err = s.repo.Create(ctx, record)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offer")
	}
	return FromModel(record), nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, approver string, asOf time.Time) (*OfferRecordDTO, error) {
	if approver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver is required")
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}

	switch record.ApprovalStatus {
	case enums.ApprovalStatusApproved:
		return FromModel(record), nil
	case enums.ApprovalStatusRejected:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rejected offers cannot be approved")
	}

	now := asOf
	record.ApprovalStatus = enums.ApprovalStatusApproved
	record.ApprovedBy = &approver
	record.ApprovedAt = &now
	record.Status = ComputeStatus(record.StartsAt, record.EndsAt, enums.ApprovalStatusApproved, asOf)
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve offer")
	}
	return FromModel(record), nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, approver string) (*OfferRecordDTO, error) {
	if approver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver is required")
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}

	// Reject is terminal and idempotent.
	if record.ApprovalStatus == enums.ApprovalStatusRejected {
		return FromModel(record), nil
	}
	if record.ApprovalStatus == enums.ApprovalStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "approved offers cannot be rejected")
	}

	record.ApprovalStatus = enums.ApprovalStatusRejected
	record.Status = enums.OfferStatusCancelled
	record.ApprovedBy = &approver
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject offer")
	}
	return FromModel(record), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*OfferRecordDTO, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return FromModel(record), nil
}

func (s *service) List(ctx context.Context, itemID uuid.UUID, page pagination.Page) ([]OfferRecordDTO, int64, error) {
	records, total, err := s.repo.List(ctx, itemID, page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	out := make([]OfferRecordDTO, 0, len(records))
	for i := range records {
		out = append(out, *FromModel(&records[i]))
	}
	return out, total, nil
}

func (s *service) FindApplicable(ctx context.Context, filters ApplicableFilters) ([]models.OfferRecord, error) {
	records, err := s.repo.FindApplicable(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load applicable offers")
	}
	return records, nil
}

// CloneForItem copies the source item's live item-scoped offers onto the
// target item as pending drafts. When startsAt is set, each clone's window
// shifts to start there, keeping its original duration.
func (s *service) CloneForItem(ctx context.Context, sourceItemID, targetItemID uuid.UUID, startsAt *time.Time) (int, error) {
	if sourceItemID == uuid.Nil || targetItemID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "source and target items are required")
	}
	if sourceItemID == targetItemID {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "source and target items must differ")
	}

	sources, err := s.repo.FindLiveByItem(ctx, sourceItemID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source offers")
	}

	created := 0
	for i := range sources {
		src := sources[i]
		clone := src
		clone.ID = uuid.New()
		clone.ItemID = &targetItemID
		clone.Status = enums.OfferStatusDraft
		clone.ApprovalStatus = enums.ApprovalStatusPending
		clone.ApprovedBy = nil
		clone.ApprovedAt = nil
		clone.CreatedAt = time.Time{}
		clone.UpdatedAt = time.Time{}
		if startsAt != nil {
			duration := src.EndsAt.Sub(src.StartsAt)
			clone.StartsAt = *startsAt
			clone.EndsAt = startsAt.Add(duration)
		}
		if err := s.repo.Create(ctx, &clone); err != nil {
			return created, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clone offer")
		}
		created++
	}
	return created, nil
}

func (s *service) validate(input SaveOfferInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer name is required")
	}
	if !input.Scope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid offer scope")
	}
	if !input.ValueType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid offer value type")
	}
	if input.OfferType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer type is required")
	}
	if input.Scope == enums.OfferScopeItem && input.ItemID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item-scoped offers require an item")
	}
	if (input.Scope == enums.OfferScopeBrand || input.Scope == enums.OfferScopeItemGroup) && input.TargetRef == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "brand and item-group offers require a target")
	}
	if !input.StartsAt.Before(input.EndsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer start must precede its end")
	}

	if input.Value.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer value must be positive")
	}
	switch input.ValueType {
	case enums.OfferValuePercentage:
		if input.Value.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "percentage offers cannot exceed 100")
		}
	case enums.OfferValueAmount, enums.OfferValuePriceOverride:
		if s.cfg.MaxAmount.IsPositive() && input.Value.GreaterThan(s.cfg.MaxAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("offer value exceeds the configured cap of %s", s.cfg.MaxAmount))
		}
	}
	if input.MinBillAmount != nil && input.MinBillAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum bill amount must not be negative")
	}
	return nil
}

// checkExclusivity enforces that no two live offers of the same
// (item, channel, offer_type) overlap in time.
func (s *service) checkExclusivity(ctx context.Context, input SaveOfferInput, excludeID uuid.UUID) error {
	others, err := s.repo.FindLiveByTypeKey(ctx, *input.ItemID, input.ChannelID, input.OfferType, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exclusivity candidates")
	}

	var conflicts []string
	for _, other := range others {
		if input.EndsAt.Before(other.StartsAt) || other.EndsAt.Before(input.StartsAt) {
			continue
		}
		conflicts = append(conflicts, other.ID.String())
	}
	if len(conflicts) > 0 {
		return pkgerrors.New(pkgerrors.CodeOverlap,
			fmt.Sprintf("offer window overlaps existing offer(s) %s", strings.Join(conflicts, ", "))).
			WithDetails(map[string]any{"conflicting_ids": conflicts})
	}
	return nil
}
