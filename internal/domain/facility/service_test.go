package facility

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/geo"
	"github.com/carefinder/carefinder/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	facilities map[uuid.UUID]*Facility
	order      []uuid.UUID
	// conflictOn simulates a concurrent writer: Update for this id fails
	// once with ErrVersionConflict after bumping the stored version.
	conflictOn uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{facilities: make(map[uuid.UUID]*Facility)}
}

func (m *mockRepo) Create(_ context.Context, f *Facility) error {
	f.ID = uuid.New()
	f.Version = 1
	m.facilities[f.ID] = f
	m.order = append(m.order, f.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m *mockRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepo) Update(_ context.Context, f *Facility) error {
	stored, ok := m.facilities[f.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if m.conflictOn == f.ID {
		m.conflictOn = uuid.Nil
		stored.Version++
		return ErrVersionConflict
	}
	if stored.Version != f.Version {
		return ErrVersionConflict
	}
	cp := *f
	cp.Version++
	m.facilities[f.ID] = &cp
	f.Version++
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.facilities[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.facilities, id)
	return nil
}

func (m *mockRepo) matches(f *Facility, filter ListFilter) bool {
	if filter.PublicOnly && !f.IsPublic() {
		return false
	}
	if filter.Kind != "" && f.Kind != filter.Kind {
		return false
	}
	if filter.City != "" && !strings.EqualFold(f.Address.City, filter.City) {
		return false
	}
	if filter.State != "" && !strings.EqualFold(f.Address.State, filter.State) {
		return false
	}
	if filter.PostalCode != "" && f.Address.PostalCode != filter.PostalCode {
		return false
	}
	return true
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Facility, int, error) {
	var all []*Facility
	for _, id := range m.order {
		if f, ok := m.facilities[id]; ok && m.matches(f, filter) {
			all = append(all, f)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) ListAll(_ context.Context, filter ListFilter) ([]*Facility, error) {
	var all []*Facility
	for _, id := range m.order {
		if f, ok := m.facilities[id]; ok && m.matches(f, filter) {
			all = append(all, f)
		}
	}
	return all, nil
}

func (m *mockRepo) SetApproval(_ context.Context, id uuid.UUID, approved bool) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.IsApproved = approved
	f.IsActive = approved
	return nil
}

func (m *mockRepo) SetOwner(_ context.Context, id uuid.UUID, ownerID *uuid.UUID, appointmentsEnabled bool) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.OwnerID = ownerID
	f.AppointmentsEnabled = appointmentsEnabled
	return nil
}

func (m *mockRepo) SetAppointmentsEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.AppointmentsEnabled = enabled
	return nil
}

func (m *mockRepo) UpdateRating(_ context.Context, id uuid.UUID, rating float64, total int) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.WebsiteRating = rating
	f.TotalReviews = total
	return nil
}

func (m *mockRepo) UpdateGoogleRating(_ context.Context, id uuid.UUID, rating float64, count int) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.GoogleRating = &rating
	f.GoogleReviewCount = &count
	return nil
}

func (m *mockRepo) ListWithPlaceIDs(_ context.Context) ([]*Facility, error) {
	var out []*Facility
	for _, id := range m.order {
		if f := m.facilities[id]; f.GooglePlaceID != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

// -- Helpers --

func adminCtx() context.Context {
	return auth.WithIdentity(context.Background(), uuid.New(), auth.RoleAdmin)
}

func userCtx(id uuid.UUID) context.Context {
	return auth.WithIdentity(context.Background(), id, auth.RoleUser)
}

func seedPublic(t *testing.T, repo *mockRepo, name string, lat, lng float64) *Facility {
	t.Helper()
	f := &Facility{
		Kind:       KindHospital,
		Name:       name,
		Location:   geo.Point{Lat: lat, Lng: lng},
		IsApproved: true,
		IsActive:   true,
	}
	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return f
}

// -- Tests --

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name string
		in   Input
	}{
		{"missing name", Input{Kind: "hospital"}},
		{"bad kind", Input{Kind: "clinic", Name: "A"}},
		{"bad coords", Input{Kind: "hospital", Name: "A", Location: geo.Point{Lat: 95, Lng: 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(adminCtx(), tc.in)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreateGoesLive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	f, err := svc.Create(adminCtx(), Input{
		Kind:     "laboratory",
		Name:     "City Lab",
		Location: geo.Point{Lat: 28.6, Lng: 77.2},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !f.IsApproved || !f.IsActive {
		t.Fatalf("created facility not live: approved=%v active=%v", f.IsApproved, f.IsActive)
	}
}

func TestGetHidesUnapproved(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	f := &Facility{Kind: KindHospital, Name: "Pending"}
	repo.Create(context.Background(), f)

	if _, err := svc.Get(userCtx(uuid.New()), f.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("public viewer err = %v, want not found", err)
	}
	if _, err := svc.Get(adminCtx(), f.ID); err != nil {
		t.Fatalf("admin viewer err = %v, want nil", err)
	}
}

func TestNearbyOrderingAndRadius(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	origin := geo.Point{Lat: 28.70, Lng: 77.10}
	far := seedPublic(t, repo, "Far", 28.7475, 77.10)  // ~5.3 km, outside default radius
	near := seedPublic(t, repo, "Near", 28.705, 77.10) // ~0.6 km
	mid := seedPublic(t, repo, "Mid", 28.7420, 77.10)  // ~4.7 km
	_ = far

	got, err := svc.Nearby(context.Background(), "", origin, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (outside radius excluded)", len(got))
	}
	if got[0].ID != near.ID || got[1].ID != mid.ID {
		t.Fatalf("wrong order: %s, %s", got[0].Name, got[1].Name)
	}
	if got[0].DistanceKm > got[1].DistanceKm {
		t.Fatalf("distances not ascending: %v > %v", got[0].DistanceKm, got[1].DistanceKm)
	}
}

func TestNearbyExcludesUnapproved(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	origin := geo.Point{Lat: 28.70, Lng: 77.10}
	pending := &Facility{Kind: KindHospital, Name: "Pending", Location: geo.Point{Lat: 28.701, Lng: 77.10}}
	repo.Create(context.Background(), pending)
	seedPublic(t, repo, "Live", 28.702, 77.10)

	got, err := svc.Nearby(context.Background(), "", origin, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Live" {
		t.Fatalf("expected only the live facility, got %d results", len(got))
	}
}

func TestNearbyCapsResults(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	origin := geo.Point{Lat: 28.70, Lng: 77.10}
	for i := 0; i < geo.MaxNearbyResults+5; i++ {
		seedPublic(t, repo, "F", 28.70, 77.10)
	}

	got, err := svc.Nearby(context.Background(), "", origin, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != geo.MaxNearbyResults {
		t.Fatalf("got %d results, want cap %d", len(got), geo.MaxNearbyResults)
	}
}

func TestNearbyRejectsBadOrigin(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Nearby(context.Background(), "", geo.Point{Lat: 91, Lng: 0}, 0)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestListRankedPagination(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	origin := geo.Point{Lat: 28.70, Lng: 77.10}
	c := seedPublic(t, repo, "C", 28.73, 77.10)
	a := seedPublic(t, repo, "A", 28.701, 77.10)
	b := seedPublic(t, repo, "B", 28.71, 77.10)

	page1, total, err := svc.ListRanked(context.Background(), ListFilter{}, origin, 2, 0)
	if err != nil {
		t.Fatalf("ListRanked: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(page1) != 2 || page1[0].ID != a.ID || page1[1].ID != b.ID {
		t.Fatalf("page 1 wrong: %+v", page1)
	}

	page2, _, err := svc.ListRanked(context.Background(), ListFilter{}, origin, 2, 2)
	if err != nil {
		t.Fatalf("ListRanked page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != c.ID {
		t.Fatalf("page 2 wrong: %+v", page2)
	}
}

func TestListFiltersByStateAndPincode(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	delhi := seedPublic(t, repo, "Delhi General", 28.6, 77.2)
	delhi.Address = Address{City: "Delhi", State: "Delhi", PostalCode: "110001"}
	mumbai := seedPublic(t, repo, "Mumbai Central", 19.0, 72.8)
	mumbai.Address = Address{City: "Mumbai", State: "Maharashtra", PostalCode: "400001"}

	got, total, err := svc.ListPublic(context.Background(), ListFilter{State: "maharashtra"}, 20, 0)
	if err != nil {
		t.Fatalf("ListPublic by state: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != mumbai.ID {
		t.Fatalf("state filter returned %d results, want only Mumbai Central", total)
	}

	got, total, err = svc.ListPublic(context.Background(), ListFilter{PostalCode: "110001"}, 20, 0)
	if err != nil {
		t.Fatalf("ListPublic by pincode: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != delhi.ID {
		t.Fatalf("pincode filter returned %d results, want only Delhi General", total)
	}

	_, total, err = svc.ListPublic(context.Background(), ListFilter{State: "Delhi", PostalCode: "400001"}, 20, 0)
	if err != nil {
		t.Fatalf("ListPublic combined: %v", err)
	}
	if total != 0 {
		t.Fatalf("combined mismatching filters returned %d results, want 0", total)
	}
}

func TestUpdateAuthorization(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	owner := uuid.New()
	f := seedPublic(t, repo, "Owned", 28.6, 77.2)
	repo.SetOwner(context.Background(), f.ID, &owner, true)

	in := Input{Kind: "hospital", Name: "Renamed", Location: f.Location}

	if _, err := svc.Update(userCtx(uuid.New()), f.ID, in); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("stranger err = %v, want forbidden", err)
	}
	if _, err := svc.Update(userCtx(owner), f.ID, in); err != nil {
		t.Fatalf("owner err = %v, want nil", err)
	}
	if got := repo.facilities[f.ID].Name; got != "Renamed" {
		t.Fatalf("name = %q, want Renamed", got)
	}
}

func TestUpdateKindImmutable(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	f := seedPublic(t, repo, "H", 28.6, 77.2)

	_, err := svc.Update(adminCtx(), f.ID, Input{Kind: "laboratory", Name: "H", Location: f.Location})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	f := seedPublic(t, repo, "H", 28.6, 77.2)

	// Another writer bumps the version between our read and our write.
	repo.conflictOn = f.ID

	_, err := svc.Update(adminCtx(), f.ID, Input{Kind: "hospital", Name: "H2", Location: f.Location})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if got := repo.facilities[f.ID].Name; got != "H" {
		t.Fatalf("name = %q, lost update must not apply", got)
	}
}

func TestSetAppointmentsRequiresOwner(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	f := seedPublic(t, repo, "H", 28.6, 77.2)

	err := svc.SetAppointmentsEnabled(adminCtx(), f.ID, true)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	owner := uuid.New()
	repo.SetOwner(context.Background(), f.ID, &owner, false)
	if err := svc.SetAppointmentsEnabled(adminCtx(), f.ID, true); err != nil {
		t.Fatalf("with owner err = %v, want nil", err)
	}
}

func TestApproveNotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Approve(adminCtx(), uuid.New(), true); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
