package appointment

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/platform/auth"
	"github.com/carefinder/carefinder/internal/platform/db"
)

// Service implements booking and the status machine. Status changes are
// guarded by the appointment's version column; a lost race is reported as an
// invalid transition against the fresh state.
type Service struct {
	repo       Repository
	facilities facility.Repository
}

func NewService(repo Repository, facilities facility.Repository) *Service {
	return &Service{repo: repo, facilities: facilities}
}

// CreateInput is the booking payload.
type CreateInput struct {
	FacilityID    uuid.UUID `json:"facility_id"`
	PatientName   string    `json:"patient_name"`
	PatientAge    int       `json:"patient_age"`
	PatientGender string    `json:"patient_gender"`
	PatientPhone  string    `json:"patient_phone"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Reason        string    `json:"reason"`
}

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Create books an appointment. The facility must be public, have a bound
// owner and have booking enabled.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Appointment, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.PatientPhone = strings.TrimSpace(in.PatientPhone)
	if in.FacilityID == uuid.Nil {
		return nil, apperr.Validation("facility_id is required")
	}
	if in.PatientName == "" {
		return nil, apperr.Validation("patient_name is required")
	}
	if in.PatientAge <= 0 || in.PatientAge > 120 {
		return nil, apperr.Validation("patient_age must be between 1 and 120")
	}
	gender, err := ParseGender(in.PatientGender)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if !phonePattern.MatchString(in.PatientPhone) {
		return nil, apperr.Validation("patient_phone must be 10 digits")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperr.Validation("scheduled_at is required")
	}
	if in.ScheduledAt.Before(time.Now()) {
		return nil, apperr.Validation("scheduled_at must be in the future")
	}

	f, err := s.facilities.GetByID(ctx, in.FacilityID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("facility")
		}
		return nil, apperr.Internal(err)
	}
	if !f.Bookable() {
		return nil, apperr.BookingDisabled()
	}

	createdBy := auth.RoleFromContext(ctx)
	if createdBy == "" {
		createdBy = auth.RoleUser
	}
	a := &Appointment{
		FacilityID:    f.ID,
		UserID:        userID,
		PatientName:   in.PatientName,
		PatientAge:    in.PatientAge,
		PatientGender: gender,
		PatientPhone:  in.PatientPhone,
		ScheduledAt:   in.ScheduledAt,
		Reason:        strings.TrimSpace(in.Reason),
		Status:        StatusPending,
		CreatedBy:     createdBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.repo.GetByID(ctx, a.ID)
}

// Get returns an appointment visible to the caller.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, apperr.Internal(err)
	}
	if !s.canAct(ctx, a, true) {
		return nil, apperr.NotFound("appointment")
	}
	return a, nil
}

// Confirm moves a pending appointment to confirmed. Facility owner or admin
// only.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, notes, false)
}

// Cancel cancels a pending or confirmed appointment. The booking user, the
// facility owner and admins may cancel.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, notes, true)
}

// Complete marks a confirmed appointment as completed. Facility owner or
// admin only.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, notes, false)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, notes string, userMayAct bool) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, apperr.Internal(err)
	}
	if !s.canAct(ctx, a, userMayAct) {
		return nil, apperr.Forbidden("not allowed to manage this appointment")
	}
	if !a.Status.CanTransitionTo(to) {
		return nil, apperr.InvalidTransition(string(a.Status), string(to))
	}

	prev := *a
	a.Status = to
	notes = strings.TrimSpace(notes)
	if to == StatusCancelled {
		now := time.Now()
		a.CancelledAt = &now
		a.CancellationReason = notes
	} else if notes != "" {
		a.Notes = notes
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		if err == ErrVersionConflict {
			*a = prev
			fresh, ferr := s.repo.GetByID(ctx, id)
			if ferr != nil {
				return nil, apperr.Internal(ferr)
			}
			return nil, apperr.InvalidTransition(string(fresh.Status), string(to))
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

// canAct reports whether the caller may act on the appointment: admins
// always, the booking user when userMayAct, and the bound owner of the
// appointment's facility.
func (s *Service) canAct(ctx context.Context, a *Appointment, userMayAct bool) bool {
	if auth.IsAdmin(ctx) {
		return true
	}
	actor := auth.UserIDFromContext(ctx)
	if userMayAct && actor == a.UserID {
		return true
	}
	f, err := s.facilities.GetByID(ctx, a.FacilityID)
	if err != nil {
		return false
	}
	return f.OwnerID != nil && *f.OwnerID == actor
}

// ListMine returns the caller's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	userID := auth.UserIDFromContext(ctx)
	appts, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return appts, total, nil
}

// ListForFacility returns a facility's appointments for its owner or an
// admin, soonest first.
func (s *Service) ListForFacility(ctx context.Context, facilityID uuid.UUID, status Status, limit, offset int) ([]*Appointment, int, error) {
	f, err := s.facilities.GetByID(ctx, facilityID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, 0, apperr.NotFound("facility")
		}
		return nil, 0, apperr.Internal(err)
	}
	actor := auth.UserIDFromContext(ctx)
	if !auth.IsAdmin(ctx) && (f.OwnerID == nil || *f.OwnerID != actor) {
		return nil, 0, apperr.Forbidden("not allowed to view this facility's appointments")
	}

	appts, total, err := s.repo.ListByFacility(ctx, facilityID, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return appts, total, nil
}

// ListAll returns all appointments for admins.
func (s *Service) ListAll(ctx context.Context, status Status, limit, offset int) ([]*Appointment, int, error) {
	appts, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return appts, total, nil
}
