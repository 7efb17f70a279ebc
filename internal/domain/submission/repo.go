package submission

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for facility submissions.
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	// GetByIDForUpdate locks the submission row so two admins cannot decide
	// it at the same time.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Submission, error)
	// SetDecision records the final status along with the rejection reason
	// or the created facility's id.
	SetDecision(ctx context.Context, s *Submission) error
	List(ctx context.Context, status Status, limit, offset int) ([]*Submission, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Submission, int, error)
}
