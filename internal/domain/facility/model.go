// Package facility is the directory of hospitals and laboratories: listing,
// proximity search, approval and ownership state.
package facility

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carefinder/carefinder/internal/domain/geo"
)

// Kind discriminates the two facility types sharing one directory.
type Kind string

const (
	KindHospital   Kind = "hospital"
	KindLaboratory Kind = "laboratory"
)

// ParseKind validates a kind string from the API surface.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindHospital, KindLaboratory:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown facility kind %q", s)
}

// Address is the postal address of a facility.
type Address struct {
	Line       string `json:"line"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Facility is a directory entry. A facility is visible to the public only
// when both IsApproved and IsActive are set; admin approval sets them
// together. AppointmentsEnabled requires a verified owner and gates booking.
type Facility struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                Kind       `json:"kind"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	Address             Address    `json:"address"`
	Location            geo.Point  `json:"location"`
	Phone               string     `json:"phone"`
	Email               string     `json:"email"`
	Website             string     `json:"website"`
	Services            []string   `json:"services"`
	IsApproved          bool       `json:"is_approved"`
	IsActive            bool       `json:"is_active"`
	AppointmentsEnabled bool       `json:"appointments_enabled"`
	OwnerID             *uuid.UUID `json:"owner_id,omitempty"`
	WebsiteRating       float64    `json:"website_rating"`
	TotalReviews        int        `json:"total_reviews"`
	GooglePlaceID       string     `json:"google_place_id,omitempty"`
	GoogleRating        *float64   `json:"google_rating,omitempty"`
	GoogleReviewCount   *int       `json:"google_review_count,omitempty"`
	Version             int64      `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsPublic reports whether the facility shows up in public listings.
func (f *Facility) IsPublic() bool {
	return f.IsApproved && f.IsActive
}

// HasOwner reports whether any owner is bound, verified or not.
func (f *Facility) HasOwner() bool {
	return f.OwnerID != nil
}

// Bookable reports whether appointments can be created against this
// facility.
func (f *Facility) Bookable() bool {
	return f.IsPublic() && f.HasOwner() && f.AppointmentsEnabled
}

// WithDistance decorates a facility with its distance from a query point in
// proximity-ranked listings.
type WithDistance struct {
	*Facility
	DistanceKm float64 `json:"distance_km"`
}
