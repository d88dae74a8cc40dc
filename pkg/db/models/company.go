package models

import (
	"time"

	"github.com/google/uuid"
)

// Company scopes price and offer records; a record without a company applies
// to every company.
type Company struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Disabled  bool      `gorm:"column:disabled;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
