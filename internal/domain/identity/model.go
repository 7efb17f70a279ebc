// Package identity manages user accounts, credentials and roles.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles a user account can hold. Owners are regular users whose claim on a
// facility has been verified by an admin.
const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// User is an account in the directory. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         string       `json:"role"`
	IsActive     bool         `json:"is_active"`
	OwnerProfile OwnerProfile `json:"owner_profile"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// OwnerProfile tracks a user's claim on a facility. FacilityID and
// FacilityKind are set when a claim is requested and stay set while it is
// pending; IsVerified flips only on admin approval.
type OwnerProfile struct {
	FacilityKind       *string    `json:"facility_kind,omitempty"`
	FacilityID         *uuid.UUID `json:"facility_id,omitempty"`
	IsVerified         bool       `json:"is_verified"`
	BusinessLicense    *string    `json:"business_license,omitempty"`
	RegistrationNumber *string    `json:"registration_number,omitempty"`
}

// HasPendingClaim reports whether the user has requested ownership of a
// facility that an admin has not yet decided on.
func (p OwnerProfile) HasPendingClaim() bool {
	return p.FacilityID != nil && !p.IsVerified
}

// Clear resets the profile when a claim is rejected or ownership removed.
func (p *OwnerProfile) Clear() {
	p.FacilityKind = nil
	p.FacilityID = nil
	p.IsVerified = false
	p.BusinessLicense = nil
	p.RegistrationNumber = nil
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleOwner, RoleAdmin:
		return true
	}
	return false
}
