package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
)

type channelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	ListSelling(ctx context.Context) ([]models.Channel, error)
	ListAll(ctx context.Context) ([]models.Channel, error)
	SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error
	CountLiveUsage(ctx context.Context, channelID uuid.UUID) (prices, offers int64, err error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
}

// Service exposes the channel and company registry.
type Service interface {
	Create(ctx context.Context, input CreateChannelInput) (*ChannelDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ChannelDTO, error)
	ListSelling(ctx context.Context) ([]ChannelDTO, error)
	ListAll(ctx context.Context) ([]ChannelDTO, error)
	Disable(ctx context.Context, id uuid.UUID) (*ChannelDTO, error)
	ListCompanies(ctx context.Context) ([]CompanyDTO, error)
}

type service struct {
	repo channelRepository
}

// NewService builds the channel service.
func NewService(repo channelRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("channel repository required")
	}
	return &service{repo: repo}, nil
}

// CreateChannelInput captures the fields for a new channel.
type CreateChannelInput struct {
	Name        string
	Description *string
	IsBuying    bool
}

func (s *service) Create(ctx context.Context, input CreateChannelInput) (*ChannelDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel name is required")
	}

	channel := &models.Channel{
		Name:        name,
		Description: input.Description,
		IsBuying:    input.IsBuying,
	}
	if err := s.repo.Create(ctx, channel); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create channel")
	}
	return FromModel(channel), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ChannelDTO, error) {
	channel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "channel not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load channel")
	}
	return FromModel(channel), nil
}

func (s *service) ListSelling(ctx context.Context) ([]ChannelDTO, error) {
	rows, err := s.repo.ListSelling(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list channels")
	}
	return toDTOs(rows), nil
}

func (s *service) ListAll(ctx context.Context) ([]ChannelDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list channels")
	}
	return toDTOs(rows), nil
}

// Disable turns a channel off. Channels carrying non-terminal price or offer
// records cannot be disabled until those records expire or move.
func (s *service) Disable(ctx context.Context, id uuid.UUID) (*ChannelDTO, error) {
	channel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "channel not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load channel")
	}
	if channel.Disabled {
		return FromModel(channel), nil
	}

	livePrices, liveOffers, err := s.repo.CountLiveUsage(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count channel usage")
	}
	if livePrices > 0 || liveOffers > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "channel has live pricing").
			WithDetails(map[string]any{"price_records": livePrices, "offer_records": liveOffers})
	}

	if err := s.repo.SetDisabled(ctx, id, true); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "disable channel")
	}
	channel.Disabled = true
	return FromModel(channel), nil
}

func (s *service) ListCompanies(ctx context.Context) ([]CompanyDTO, error) {
	rows, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list companies")
	}
	out := make([]CompanyDTO, 0, len(rows))
	for i := range rows {
		out = append(out, CompanyDTO{ID: rows[i].ID, Name: rows[i].Name})
	}
	return out, nil
}

func toDTOs(rows []models.Channel) []ChannelDTO {
	out := make([]ChannelDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
