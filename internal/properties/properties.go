// Package properties provides the listing catalog the assistant searches
// when recommending homes.
package properties

import (
	"time"

	"github.com/google/uuid"
)

// Property is one listing in the tenant's catalog.
type Property struct {
	ID           uuid.UUID `db:"id"`
	TenantID     uuid.UUID `db:"tenant_id"`
	Code         string    `db:"code"`
	Title        string    `db:"title"`
	City         string    `db:"city"`
	Neighborhood string    `db:"neighborhood"`
	PropertyType string    `db:"property_type"`
	Purpose      string    `db:"purpose"`
	Bedrooms     int       `db:"bedrooms"`
	Bathrooms    int       `db:"bathrooms"`
	AreaM2       float64   `db:"area_m2"`
	Price        float64   `db:"price"`
	Description  string    `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
}

// SearchFilter narrows a catalog search. Zero values mean "any".
type SearchFilter struct {
	City         string
	PropertyType string
	Purpose      string
	Bedrooms     int
	MinPrice     float64
	MaxPrice     float64
	Limit        int
}
