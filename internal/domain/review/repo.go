package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for reviews and helpful votes.
// Implementations run against the transaction in ctx when one is present.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	// GetByIDForUpdate locks the review row so concurrent helpful-vote
	// toggles serialize.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Review, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByFacility(ctx context.Context, facilityID uuid.UUID, approvedOnly bool, limit, offset int) ([]*Review, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Review, int, error)

	HasVote(ctx context.Context, reviewID, userID uuid.UUID) (bool, error)
	AddVote(ctx context.Context, reviewID, userID uuid.UUID) error
	RemoveVote(ctx context.Context, reviewID, userID uuid.UUID) error
	CountVotes(ctx context.Context, reviewID uuid.UUID) (int, error)
	SetHelpfulCount(ctx context.Context, reviewID uuid.UUID, count int) error

	// AggregateApproved computes the mean rating and count over a
	// facility's approved reviews. Zero values when there are none.
	AggregateApproved(ctx context.Context, facilityID uuid.UUID) (avg float64, count int, err error)
}
