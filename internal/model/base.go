package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel audit columns embedded by every business table.
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null"   json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"  json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null"   json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"  json:"updated_by,omitempty"`
}

// VersionedModel adds the optimistic-lock version column.
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ensureID fills an empty primary key. IDs are minted in Go rather than by a
// column default so the same models work on PostgreSQL and SQLite.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
