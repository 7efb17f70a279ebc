// Package review keeps the one-review-per-user-per-facility ledger and the
// helpful-vote counts, and maintains each facility's rating aggregate.
package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/carefinder/carefinder/internal/domain/facility"
)

// Review is a user's single review of a facility. The (user, kind, facility)
// triple is unique at the database level; a second insert is rejected there,
// not by a read-then-write check.
type Review struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	FacilityKind  facility.Kind `json:"facility_kind"`
	FacilityID    uuid.UUID     `json:"facility_id"`
	Rating        int           `json:"rating"`
	Title         string        `json:"title"`
	Comment       string        `json:"comment"`
	IsApproved    bool          `json:"is_approved"`
	AdminResponse string        `json:"admin_response,omitempty"`
	HelpfulCount  int           `json:"helpful_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// VoteResult reports the state of a review after a helpful-vote toggle.
type VoteResult struct {
	ReviewID     uuid.UUID `json:"review_id"`
	Voted        bool      `json:"voted"`
	HelpfulCount int       `json:"helpful_count"`
}
