// Package ownerclaim runs the workflow that binds a user to the facility
// they claim to own. Every transition touches both the user's owner profile
// and the facility's owner binding, so each runs in a single transaction
// with the facility row locked.
package ownerclaim

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/domain/identity"
	"github.com/carefinder/carefinder/internal/platform/db"
)

// Service coordinates users and facilities through the claim lifecycle.
type Service struct {
	pool       *pgxpool.Pool
	users      identity.Repository
	facilities facility.Repository
}

func NewService(pool *pgxpool.Pool, users identity.Repository, facilities facility.Repository) *Service {
	return &Service{pool: pool, users: users, facilities: facilities}
}

// RequestInput is the payload for claiming a facility.
type RequestInput struct {
	FacilityID         uuid.UUID `json:"facility_id"`
	BusinessLicense    string    `json:"business_license"`
	RegistrationNumber string    `json:"registration_number"`
}

// Request records a pending ownership claim. The facility is provisionally
// bound to the claimant so a second claim fails fast, but booking stays off
// and the claimant gains no privileges until an admin approves.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, in RequestInput) (*identity.User, error) {
	if in.FacilityID == uuid.Nil {
		return nil, apperr.Validation("facility_id is required")
	}
	if strings.TrimSpace(in.BusinessLicense) == "" {
		return nil, apperr.Validation("business_license is required")
	}

	var claimant *identity.User
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		f, err := s.facilities.GetByIDForUpdate(ctx, in.FacilityID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("facility")
			}
			return apperr.Internal(err)
		}
		if f.HasOwner() {
			return apperr.AlreadyClaimed()
		}

		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("user")
			}
			return apperr.Internal(err)
		}
		if user.Role == identity.RoleOwner || user.OwnerProfile.FacilityID != nil {
			return apperr.AlreadyOwner()
		}

		kind := string(f.Kind)
		license := strings.TrimSpace(in.BusinessLicense)
		user.OwnerProfile = identity.OwnerProfile{
			FacilityKind:    &kind,
			FacilityID:      &f.ID,
			BusinessLicense: &license,
		}
		if reg := strings.TrimSpace(in.RegistrationNumber); reg != "" {
			user.OwnerProfile.RegistrationNumber = &reg
		}
		if err := s.users.Update(ctx, user); err != nil {
			return apperr.Internal(err)
		}
		if err := s.facilities.SetOwner(ctx, f.ID, &user.ID, false); err != nil {
			return apperr.Internal(err)
		}
		claimant = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimant, nil
}

// Approve verifies a pending claim: the claimant becomes an owner and the
// facility opens for booking. Approving an already verified owner is a
// no-op, so a repeated admin click cannot corrupt state.
func (s *Service) Approve(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	var approved *identity.User
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("user")
			}
			return apperr.Internal(err)
		}
		if user.OwnerProfile.FacilityID == nil {
			return apperr.Validation("user has no ownership claim")
		}
		if user.OwnerProfile.IsVerified {
			approved = user
			return nil
		}

		f, err := s.facilities.GetByIDForUpdate(ctx, *user.OwnerProfile.FacilityID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("facility")
			}
			return apperr.Internal(err)
		}
		if f.OwnerID != nil && *f.OwnerID != user.ID {
			return apperr.AlreadyClaimed()
		}

		user.Role = identity.RoleOwner
		user.OwnerProfile.IsVerified = true
		if err := s.users.Update(ctx, user); err != nil {
			return apperr.Internal(err)
		}
		if err := s.facilities.SetOwner(ctx, f.ID, &user.ID, true); err != nil {
			return apperr.Internal(err)
		}
		approved = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject clears a pending claim and releases the provisional binding.
func (s *Service) Reject(ctx context.Context, userID uuid.UUID) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("user")
			}
			return apperr.Internal(err)
		}
		if user.OwnerProfile.FacilityID == nil {
			return apperr.Validation("user has no ownership claim")
		}
		if user.OwnerProfile.IsVerified {
			return apperr.Validation("claim is already approved, remove ownership instead")
		}

		facilityID := *user.OwnerProfile.FacilityID
		f, err := s.facilities.GetByIDForUpdate(ctx, facilityID)
		if err != nil && !db.IsNoRows(err) {
			return apperr.Internal(err)
		}

		user.OwnerProfile.Clear()
		if user.Role == identity.RoleOwner {
			user.Role = identity.RoleUser
		}
		if err := s.users.Update(ctx, user); err != nil {
			return apperr.Internal(err)
		}
		if f != nil && f.OwnerID != nil && *f.OwnerID == user.ID {
			if err := s.facilities.SetOwner(ctx, f.ID, nil, false); err != nil {
				return apperr.Internal(err)
			}
		}
		return nil
	})
}

// Remove strips a verified owner from their facility. The facility stays
// listed but booking is disabled until a new owner is bound.
func (s *Service) Remove(ctx context.Context, facilityID uuid.UUID) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		f, err := s.facilities.GetByIDForUpdate(ctx, facilityID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("facility")
			}
			return apperr.Internal(err)
		}
		if !f.HasOwner() {
			return apperr.Validation("facility has no owner")
		}

		owner, err := s.users.GetByID(ctx, *f.OwnerID)
		if err != nil && !db.IsNoRows(err) {
			return apperr.Internal(err)
		}
		if owner != nil {
			owner.OwnerProfile.Clear()
			if owner.Role == identity.RoleOwner {
				owner.Role = identity.RoleUser
			}
			if err := s.users.Update(ctx, owner); err != nil {
				return apperr.Internal(err)
			}
		}
		if err := s.facilities.SetOwner(ctx, f.ID, nil, false); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// Reassign moves ownership of a facility to the user behind newOwnerEmail.
// The previous owner, if any, is demoted in the same transaction; the new
// owner comes out verified.
func (s *Service) Reassign(ctx context.Context, facilityID uuid.UUID, newOwnerEmail string) (*identity.User, error) {
	newOwnerEmail = strings.TrimSpace(newOwnerEmail)
	if newOwnerEmail == "" {
		return nil, apperr.Validation("new_owner_email is required")
	}

	var newOwner *identity.User
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		f, err := s.facilities.GetByIDForUpdate(ctx, facilityID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("facility")
			}
			return apperr.Internal(err)
		}

		user, err := s.users.GetByEmail(ctx, newOwnerEmail)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("user")
			}
			return apperr.Internal(err)
		}
		if f.OwnerID != nil && *f.OwnerID == user.ID {
			newOwner = user
			return nil
		}
		if user.OwnerProfile.FacilityID != nil {
			return apperr.AlreadyOwner()
		}

		if f.OwnerID != nil {
			prev, err := s.users.GetByID(ctx, *f.OwnerID)
			if err != nil && !db.IsNoRows(err) {
				return apperr.Internal(err)
			}
			if prev != nil {
				prev.OwnerProfile.Clear()
				if prev.Role == identity.RoleOwner {
					prev.Role = identity.RoleUser
				}
				if err := s.users.Update(ctx, prev); err != nil {
					return apperr.Internal(err)
				}
			}
		}

		kind := string(f.Kind)
		user.Role = identity.RoleOwner
		user.OwnerProfile = identity.OwnerProfile{
			FacilityKind: &kind,
			FacilityID:   &f.ID,
			IsVerified:   true,
		}
		if err := s.users.Update(ctx, user); err != nil {
			return apperr.Internal(err)
		}
		if err := s.facilities.SetOwner(ctx, f.ID, &user.ID, true); err != nil {
			return apperr.Internal(err)
		}
		newOwner = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newOwner, nil
}

// ListPending returns claims waiting on an admin decision.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*identity.User, int, error) {
	users, total, err := s.users.ListPendingClaims(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return users, total, nil
}
