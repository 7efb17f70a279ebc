package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrVersionConflict is returned by UpdateStatus when another writer moved
// the appointment first.
var ErrVersionConflict = errors.New("appointment version conflict")

// Repository is the persistence contract for appointments.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus writes status and notes guarded by the version column and
	// returns ErrVersionConflict on a lost race.
	UpdateStatus(ctx context.Context, a *Appointment) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID, status Status, limit, offset int) ([]*Appointment, int, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Appointment, int, error)
}
