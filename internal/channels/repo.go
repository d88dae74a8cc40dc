package channels

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// Repository handles channel persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to channel operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new channel row.
func (r *Repository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

// FindByID loads a channel by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// FindByName loads a channel by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// ListSelling returns all enabled selling channels ordered by name.
func (r *Repository) ListSelling(ctx context.Context) ([]models.Channel, error) {
	var out []models.Channel
	err := r.db.WithContext(ctx).
		Where("disabled = ? AND is_buying = ?", false, false).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// ListAll returns every channel, enabled or not.
func (r *Repository) ListAll(ctx context.Context) ([]models.Channel, error) {
	var out []models.Channel
	err := r.db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// SetDisabled flips the disabled flag on a channel.
func (r *Repository) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Update("disabled", disabled).Error
}

// CountLiveUsage counts non-terminal price and offer records still bound to
// the channel.
func (r *Repository) CountLiveUsage(ctx context.Context, channelID uuid.UUID) (prices, offers int64, err error) {
	err = r.db.WithContext(ctx).
		Model(&models.PriceRecord{}).
		Where("channel_id = ? AND status IN ?", channelID,
			[]enums.PriceStatus{enums.PriceStatusDraft, enums.PriceStatusScheduled, enums.PriceStatusActive}).
		Count(&prices).Error
	if err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&models.OfferRecord{}).
		Where("channel_id = ? AND status IN ?", channelID,
			[]enums.OfferStatus{enums.OfferStatusDraft, enums.OfferStatusScheduled, enums.OfferStatusActive}).
		Count(&offers).Error
	if err != nil {
		return 0, 0, err
	}
	return prices, offers, nil
}

// ListCompanies returns enabled companies ordered by name.
func (r *Repository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var out []models.Company
	err := r.db.WithContext(ctx).
		Where("disabled = ?", false).
		Order("name asc").
		Find(&out).Error
	return out, err
}
