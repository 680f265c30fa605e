package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBase stamps a fresh ID and timestamps.
func NewBase(now time.Time) Base {
	return Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Offset returns the row offset for the page, normalizing out-of-range values.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the page size clamped to 1..100, defaulting to 20.
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return 20
	case p.PageSize > 100:
		return 100
	default:
		return p.PageSize
	}
}
