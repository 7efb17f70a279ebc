package facility

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrVersionConflict is returned by Update when the row changed since it was
// read. Callers translate it into a conflict response.
var ErrVersionConflict = errors.New("facility version conflict")

// ListFilter narrows facility listings. Zero values mean "no filter".
type ListFilter struct {
	Kind       Kind
	City       string
	State      string
	PostalCode string
	Service    string
	Query      string
	PublicOnly bool
}

// Repository is the persistence contract for the facility directory.
// Implementations run against the transaction in ctx when one is present.
type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	// GetByIDForUpdate locks the facility row for the duration of the
	// surrounding transaction. The claim workflow uses it to serialize
	// competing ownership changes.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Facility, error)
	// Update writes all mutable fields guarded by the version column and
	// returns ErrVersionConflict on a lost race.
	Update(ctx context.Context, f *Facility) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Facility, int, error)
	// ListAll returns every matching facility without pagination, for
	// in-memory proximity ranking.
	ListAll(ctx context.Context, filter ListFilter) ([]*Facility, error)
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) error
	SetOwner(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, appointmentsEnabled bool) error
	SetAppointmentsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	// UpdateRating stores the recomputed site-local review aggregate.
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, total int) error
	UpdateGoogleRating(ctx context.Context, id uuid.UUID, rating float64, count int) error
	// ListWithPlaceIDs returns facilities that carry a Google place id, for
	// the external rating refresh job.
	ListWithPlaceIDs(ctx context.Context) ([]*Facility, error)
}
