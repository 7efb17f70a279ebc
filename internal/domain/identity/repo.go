package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for user accounts. Implementations
// must run against the transaction carried in ctx when one is present, so
// the claim workflow can update users and facilities atomically.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	// ListPendingClaims returns users whose ownership claim awaits an admin
	// decision, oldest first.
	ListPendingClaims(ctx context.Context, limit, offset int) ([]*User, int, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
