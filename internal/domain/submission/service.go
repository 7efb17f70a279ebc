package submission

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/domain/geo"
	"github.com/carefinder/carefinder/internal/platform/db"
)

// Service implements the submission workflow. A decision is final: once a
// submission leaves pending it cannot be re-decided.
type Service struct {
	pool       *pgxpool.Pool
	repo       Repository
	facilities *facility.Service
}

func NewService(pool *pgxpool.Pool, repo Repository, facilities *facility.Service) *Service {
	return &Service{pool: pool, repo: repo, facilities: facilities}
}

// Input is the submission payload, the same shape a facility is created
// from.
type Input struct {
	Kind        string           `json:"kind"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Address     facility.Address `json:"address"`
	Location    geo.Point        `json:"location"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email"`
	Website     string           `json:"website"`
	Services    []string         `json:"services"`
}

// Submit records a proposed facility for admin review.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, in Input) (*Submission, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	kind, err := facility.ParseKind(in.Kind)
	if err != nil {
		return nil, apperr.Validation("kind must be hospital or laboratory")
	}
	if err := geo.Validate(in.Location.Lat, in.Location.Lng); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	sub := &Submission{
		SubmittedBy: userID,
		Kind:        kind,
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
		Location:    in.Location,
		Phone:       in.Phone,
		Email:       in.Email,
		Website:     in.Website,
		Services:    in.Services,
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.repo.GetByID(ctx, sub.ID)
}

// Get returns a submission. Visible to its submitter and admins; the
// handler enforces that with the returned value.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("submission")
		}
		return nil, apperr.Internal(err)
	}
	return sub, nil
}

// Approve turns a pending submission into a live facility and links the
// submission to it, atomically.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var approved *Submission
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		sub, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("submission")
			}
			return apperr.Internal(err)
		}
		if sub.Status != StatusPending {
			return apperr.InvalidTransition(string(sub.Status), string(StatusApproved))
		}

		f, err := s.facilities.Create(ctx, facility.Input{
			Kind:        string(sub.Kind),
			Name:        sub.Name,
			Description: sub.Description,
			Address:     sub.Address,
			Location:    sub.Location,
			Phone:       sub.Phone,
			Email:       sub.Email,
			Website:     sub.Website,
			Services:    sub.Services,
		})
		if err != nil {
			return err
		}

		sub.Status = StatusApproved
		sub.ApprovedFacilityID = &f.ID
		if err := s.repo.SetDecision(ctx, sub); err != nil {
			return apperr.Internal(err)
		}
		approved = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject closes a pending submission with a reason.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Submission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	var rejected *Submission
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		sub, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("submission")
			}
			return apperr.Internal(err)
		}
		if sub.Status != StatusPending {
			return apperr.InvalidTransition(string(sub.Status), string(StatusRejected))
		}

		sub.Status = StatusRejected
		sub.RejectionReason = reason
		if err := s.repo.SetDecision(ctx, sub); err != nil {
			return apperr.Internal(err)
		}
		rejected = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// List returns submissions for admins, optionally by status.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Submission, int, error) {
	subs, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return subs, total, nil
}

// ListMine returns the caller's own submissions.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Submission, int, error) {
	subs, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return subs, total, nil
}
