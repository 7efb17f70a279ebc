package facility

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/geo"
	"github.com/carefinder/carefinder/internal/platform/auth"
	"github.com/carefinder/carefinder/internal/platform/db"
)

// Service implements directory operations on top of the repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input carries the mutable facility fields for create and update.
type Input struct {
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Address       Address   `json:"address"`
	Location      geo.Point `json:"location"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Website       string    `json:"website"`
	Services      []string  `json:"services"`
	GooglePlaceID string    `json:"google_place_id"`
}

func (in *Input) validate() (Kind, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", apperr.Validation("name is required")
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return "", apperr.Validation("kind must be hospital or laboratory")
	}
	if err := geo.Validate(in.Location.Lat, in.Location.Lng); err != nil {
		return "", apperr.Validation("%v", err)
	}
	return kind, nil
}

// Create adds a facility to the directory. Admin-created facilities go live
// immediately; entries from the submission workflow arrive already vetted,
// so they are approved too.
func (s *Service) Create(ctx context.Context, in Input) (*Facility, error) {
	kind, err := in.validate()
	if err != nil {
		return nil, err
	}
	f := &Facility{
		Kind:          kind,
		Name:          in.Name,
		Description:   in.Description,
		Address:       in.Address,
		Location:      in.Location,
		Phone:         in.Phone,
		Email:         in.Email,
		Website:       in.Website,
		Services:      in.Services,
		GooglePlaceID: in.GooglePlaceID,
		IsApproved:    true,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Get(ctx, f.ID)
}

// Get returns a facility. Unlisted facilities are visible only to admins and
// their own (possibly still unverified) owner.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Facility, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("facility")
		}
		return nil, apperr.Internal(err)
	}
	if !f.IsPublic() && !s.canManage(ctx, f) {
		return nil, apperr.NotFound("facility")
	}
	return f, nil
}

// ListPublic returns approved, active facilities matching the filter,
// newest first.
func (s *Service) ListPublic(ctx context.Context, filter ListFilter, limit, offset int) ([]*Facility, int, error) {
	filter.PublicOnly = true
	facilities, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return facilities, total, nil
}

// ListRanked returns public facilities sorted by distance from origin. The
// whole matching set is ranked and the page cut afterwards, so page
// boundaries follow distance order.
func (s *Service) ListRanked(ctx context.Context, filter ListFilter, origin geo.Point, limit, offset int) ([]WithDistance, int, error) {
	if err := geo.Validate(origin.Lat, origin.Lng); err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}
	filter.PublicOnly = true
	facilities, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	ranked := rank(facilities, origin)
	total := len(ranked)
	if offset >= total {
		return []WithDistance{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return ranked[offset:end], total, nil
}

// Nearby returns public facilities within radiusKm of origin, closest
// first, capped at geo.MaxNearbyResults. A zero radius means the default.
func (s *Service) Nearby(ctx context.Context, kind Kind, origin geo.Point, radiusKm float64) ([]WithDistance, error) {
	if err := geo.Validate(origin.Lat, origin.Lng); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if radiusKm < 0 {
		return nil, apperr.Validation("radius must be positive")
	}
	if radiusKm == 0 {
		radiusKm = geo.DefaultRadiusKm
	}

	facilities, err := s.repo.ListAll(ctx, ListFilter{Kind: kind, PublicOnly: true})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ranked := rank(facilities, origin)
	out := make([]WithDistance, 0, geo.MaxNearbyResults)
	for _, wd := range ranked {
		if wd.DistanceKm > radiusKm {
			break
		}
		out = append(out, wd)
		if len(out) == geo.MaxNearbyResults {
			break
		}
	}
	return out, nil
}

func rank(facilities []*Facility, origin geo.Point) []WithDistance {
	points := make([]geo.Point, len(facilities))
	for i, f := range facilities {
		points[i] = f.Location
	}
	entries := geo.Rank(origin, points)
	out := make([]WithDistance, len(entries))
	for i, e := range entries {
		out[i] = WithDistance{Facility: facilities[e.Index], DistanceKm: e.DistanceKm}
	}
	return out
}

// AdminList returns facilities regardless of approval state.
func (s *Service) AdminList(ctx context.Context, filter ListFilter, limit, offset int) ([]*Facility, int, error) {
	facilities, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return facilities, total, nil
}

// Update rewrites a facility's descriptive fields. Allowed for admins and
// the facility's bound owner.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Facility, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("facility")
		}
		return nil, apperr.Internal(err)
	}
	if !s.canManage(ctx, f) {
		return nil, apperr.Forbidden("not allowed to manage this facility")
	}
	kind, err := in.validate()
	if err != nil {
		return nil, err
	}
	if kind != f.Kind {
		return nil, apperr.Validation("facility kind cannot be changed")
	}

	f.Name = in.Name
	f.Description = in.Description
	f.Address = in.Address
	f.Location = in.Location
	f.Phone = in.Phone
	f.Email = in.Email
	f.Website = in.Website
	f.Services = in.Services
	f.GooglePlaceID = in.GooglePlaceID

	if err := s.repo.Update(ctx, f); err != nil {
		if err == ErrVersionConflict {
			return nil, apperr.Conflict("facility was modified concurrently, retry")
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

// Approve makes a facility publicly visible. Approval and activation are a
// single switch.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approved bool) error {
	if err := s.repo.SetApproval(ctx, id, approved); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("facility")
		}
		return apperr.Internal(err)
	}
	return nil
}

// SetAppointmentsEnabled turns booking on or off. Enabling requires a bound
// owner; a facility without one cannot take appointments.
func (s *Service) SetAppointmentsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("facility")
		}
		return apperr.Internal(err)
	}
	if !s.canManage(ctx, f) {
		return apperr.Forbidden("not allowed to manage this facility")
	}
	if enabled && !f.HasOwner() {
		return apperr.Validation("facility has no owner, appointments cannot be enabled")
	}
	if err := s.repo.SetAppointmentsEnabled(ctx, id, enabled); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Delete removes a facility from the directory.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("facility")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) canManage(ctx context.Context, f *Facility) bool {
	if auth.IsAdmin(ctx) {
		return true
	}
	userID := auth.UserIDFromContext(ctx)
	return f.OwnerID != nil && *f.OwnerID == userID
}
