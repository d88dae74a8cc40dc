package channels

import (
	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
)

// ChannelDTO is the API projection of a channel.
type ChannelDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsBuying    bool      `json:"is_buying"`
	Disabled    bool      `json:"disabled"`
}

// CompanyDTO is the API projection of a company.
type CompanyDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// FromModel maps a channel row into its DTO.
func FromModel(m *models.Channel) *ChannelDTO {
	if m == nil {
		return nil
	}
	return &ChannelDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsBuying:    m.IsBuying,
		Disabled:    m.Disabled,
	}
}
