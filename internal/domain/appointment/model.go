// Package appointment implements booking against facilities and the
// appointment status machine.
package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// transitions is the full status machine. Cancelled and completed are
// terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseStatus validates a status string from the API surface.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Patient genders accepted on booking.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// ParseGender validates a patient gender string from the API surface.
func ParseGender(s string) (string, error) {
	switch s {
	case GenderMale, GenderFemale, GenderOther:
		return s, nil
	}
	return "", fmt.Errorf("unknown patient gender %q", s)
}

// Appointment is a booking made by a user against a facility. CreatedBy
// records the role of the account that booked it, so owner- and admin-made
// bookings stay distinguishable from patient self-service ones.
type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	FacilityID         uuid.UUID  `json:"facility_id"`
	UserID             uuid.UUID  `json:"user_id"`
	PatientName        string     `json:"patient_name"`
	PatientAge         int        `json:"patient_age"`
	PatientGender      string     `json:"patient_gender"`
	PatientPhone       string     `json:"patient_phone"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	Reason             string     `json:"reason"`
	Status             Status     `json:"status"`
	Notes              string     `json:"notes"`
	CreatedBy          string     `json:"created_by"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	Version            int64      `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
