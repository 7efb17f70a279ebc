// Package submission lets users propose new facilities for the directory
// and admins decide on them.
package submission

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/domain/geo"
)

// Status is the submission decision state. Approved and rejected are final.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status string from the API surface.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// Submission is a user-proposed facility. On approval the payload becomes a
// live directory entry and ApprovedFacilityID links back to it.
type Submission struct {
	ID                 uuid.UUID        `json:"id"`
	SubmittedBy        uuid.UUID        `json:"submitted_by"`
	Kind               facility.Kind    `json:"kind"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	Address            facility.Address `json:"address"`
	Location           geo.Point        `json:"location"`
	Phone              string           `json:"phone"`
	Email              string           `json:"email"`
	Website            string           `json:"website"`
	Services           []string         `json:"services"`
	Status             Status           `json:"status"`
	RejectionReason    string           `json:"rejection_reason,omitempty"`
	ApprovedFacilityID *uuid.UUID       `json:"approved_facility_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}
