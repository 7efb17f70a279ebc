package ownerclaim

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/domain/identity"
	"github.com/carefinder/carefinder/internal/platform/db"
)

// stubTx satisfies pgx.Tx for tests; WithTx only checks presence, no method
// is ever called.
type stubTx struct{ pgx.Tx }

func txCtx() context.Context {
	return db.ContextWithTx(context.Background(), stubTx{})
}

// -- Mock user repository --

type mockUserRepo struct {
	users map[uuid.UUID]*identity.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*identity.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *identity.User) error {
	u.ID = uuid.New()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *identity.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role string, limit, offset int) ([]*identity.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) ListPendingClaims(_ context.Context, limit, offset int) ([]*identity.User, int, error) {
	var out []*identity.User
	for _, u := range m.users {
		if u.OwnerProfile.HasPendingClaim() {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return nil
}

// -- Mock facility repository --

type mockFacilityRepo struct {
	facilities map[uuid.UUID]*facility.Facility
}

func newMockFacilityRepo() *mockFacilityRepo {
	return &mockFacilityRepo{facilities: make(map[uuid.UUID]*facility.Facility)}
}

func (m *mockFacilityRepo) Create(_ context.Context, f *facility.Facility) error {
	f.ID = uuid.New()
	m.facilities[f.ID] = f
	return nil
}

func (m *mockFacilityRepo) GetByID(_ context.Context, id uuid.UUID) (*facility.Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m *mockFacilityRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*facility.Facility, error) {
	return m.GetByID(ctx, id)
}

func (m *mockFacilityRepo) Update(_ context.Context, f *facility.Facility) error {
	m.facilities[f.ID] = f
	return nil
}

func (m *mockFacilityRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.facilities, id)
	return nil
}

func (m *mockFacilityRepo) List(_ context.Context, filter facility.ListFilter, limit, offset int) ([]*facility.Facility, int, error) {
	return nil, 0, nil
}

func (m *mockFacilityRepo) ListAll(_ context.Context, filter facility.ListFilter) ([]*facility.Facility, error) {
	return nil, nil
}

func (m *mockFacilityRepo) SetApproval(_ context.Context, id uuid.UUID, approved bool) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.IsApproved = approved
	f.IsActive = approved
	return nil
}

func (m *mockFacilityRepo) SetOwner(_ context.Context, id uuid.UUID, ownerID *uuid.UUID, appointmentsEnabled bool) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.OwnerID = ownerID
	f.AppointmentsEnabled = appointmentsEnabled
	return nil
}

func (m *mockFacilityRepo) SetAppointmentsEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	f, ok := m.facilities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.AppointmentsEnabled = enabled
	return nil
}

func (m *mockFacilityRepo) UpdateRating(_ context.Context, id uuid.UUID, rating float64, total int) error {
	return nil
}

func (m *mockFacilityRepo) UpdateGoogleRating(_ context.Context, id uuid.UUID, rating float64, count int) error {
	return nil
}

func (m *mockFacilityRepo) ListWithPlaceIDs(_ context.Context) ([]*facility.Facility, error) {
	return nil, nil
}

// -- Fixtures --

type fixture struct {
	svc        *Service
	users      *mockUserRepo
	facilities *mockFacilityRepo
}

func newFixture() *fixture {
	users := newMockUserRepo()
	facilities := newMockFacilityRepo()
	return &fixture{
		svc:        NewService(nil, users, facilities),
		users:      users,
		facilities: facilities,
	}
}

func (f *fixture) seedUser(email string) *identity.User {
	u := &identity.User{Name: "U", Email: email, Role: identity.RoleUser, IsActive: true}
	f.users.Create(context.Background(), u)
	return u
}

func (f *fixture) seedFacility() *facility.Facility {
	fac := &facility.Facility{Kind: facility.KindHospital, Name: "General", IsApproved: true, IsActive: true}
	f.facilities.Create(context.Background(), fac)
	return fac
}

// -- Tests --

func TestRequestBindsProvisionally(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("owner@x.com")
	fac := fx.seedFacility()

	got, err := fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "LIC-1"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got.OwnerProfile.FacilityID == nil || *got.OwnerProfile.FacilityID != fac.ID {
		t.Fatal("claim not recorded on user")
	}
	if got.OwnerProfile.IsVerified {
		t.Fatal("claim must start unverified")
	}
	if got.Role != identity.RoleUser {
		t.Fatalf("role = %q, claimant must stay a user until approval", got.Role)
	}

	stored := fx.facilities.facilities[fac.ID]
	if stored.OwnerID == nil || *stored.OwnerID != user.ID {
		t.Fatal("facility not provisionally bound")
	}
	if stored.AppointmentsEnabled {
		t.Fatal("appointments must stay disabled while claim is pending")
	}
}

func TestRequestOnClaimedFacility(t *testing.T) {
	fx := newFixture()
	first := fx.seedUser("first@x.com")
	second := fx.seedUser("second@x.com")
	fac := fx.seedFacility()

	if _, err := fx.svc.Request(txCtx(), first.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L1"}); err != nil {
		t.Fatalf("first Request: %v", err)
	}
	_, err := fx.svc.Request(txCtx(), second.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L2"})
	if !apperr.IsKind(err, apperr.KindAlreadyClaimed) {
		t.Fatalf("err = %v, want already-claimed", err)
	}
}

func TestRequestWhileAlreadyClaiming(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("busy@x.com")
	facA := fx.seedFacility()
	facB := fx.seedFacility()

	if _, err := fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: facA.ID, BusinessLicense: "L"}); err != nil {
		t.Fatalf("first Request: %v", err)
	}
	_, err := fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: facB.ID, BusinessLicense: "L"})
	if !apperr.IsKind(err, apperr.KindAlreadyOwner) {
		t.Fatalf("err = %v, want already-owner", err)
	}
}

func TestApprove(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("owner@x.com")
	fac := fx.seedFacility()
	fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L"})

	got, err := fx.svc.Approve(txCtx(), user.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.Role != identity.RoleOwner || !got.OwnerProfile.IsVerified {
		t.Fatalf("approval incomplete: role=%q verified=%v", got.Role, got.OwnerProfile.IsVerified)
	}

	stored := fx.facilities.facilities[fac.ID]
	if stored.OwnerID == nil || *stored.OwnerID != user.ID {
		t.Fatal("facility owner not bound")
	}
	if !stored.AppointmentsEnabled {
		t.Fatal("appointments not enabled on approval")
	}

	// Second approval is a no-op, not an error.
	if _, err := fx.svc.Approve(txCtx(), user.ID); err != nil {
		t.Fatalf("repeated Approve: %v", err)
	}
}

func TestApproveWithoutClaim(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("plain@x.com")
	if _, err := fx.svc.Approve(txCtx(), user.ID); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestReject(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("owner@x.com")
	fac := fx.seedFacility()
	fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L"})

	if err := fx.svc.Reject(txCtx(), user.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	stored := fx.users.users[user.ID]
	if stored.OwnerProfile.FacilityID != nil || stored.OwnerProfile.BusinessLicense != nil {
		t.Fatal("owner profile not cleared")
	}
	if stored.Role != identity.RoleUser {
		t.Fatalf("role = %q, want user", stored.Role)
	}
	if fx.facilities.facilities[fac.ID].OwnerID != nil {
		t.Fatal("provisional binding not released")
	}
}

func TestRejectApprovedClaim(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("owner@x.com")
	fac := fx.seedFacility()
	fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L"})
	fx.svc.Approve(txCtx(), user.ID)

	if err := fx.svc.Reject(txCtx(), user.ID); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestRemove(t *testing.T) {
	fx := newFixture()
	user := fx.seedUser("owner@x.com")
	fac := fx.seedFacility()
	fx.svc.Request(txCtx(), user.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L"})
	fx.svc.Approve(txCtx(), user.ID)

	if err := fx.svc.Remove(txCtx(), fac.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	stored := fx.facilities.facilities[fac.ID]
	if stored.OwnerID != nil {
		t.Fatal("owner not unbound")
	}
	if stored.AppointmentsEnabled {
		t.Fatal("appointments not disabled after removal")
	}
	if fx.users.users[user.ID].Role != identity.RoleUser {
		t.Fatal("previous owner not demoted")
	}
}

func TestReassign(t *testing.T) {
	fx := newFixture()
	oldOwner := fx.seedUser("old@x.com")
	newOwner := fx.seedUser("new@x.com")
	fac := fx.seedFacility()
	fx.svc.Request(txCtx(), oldOwner.ID, RequestInput{FacilityID: fac.ID, BusinessLicense: "L"})
	fx.svc.Approve(txCtx(), oldOwner.ID)

	got, err := fx.svc.Reassign(txCtx(), fac.ID, "new@x.com")
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if got.ID != newOwner.ID || got.Role != identity.RoleOwner || !got.OwnerProfile.IsVerified {
		t.Fatalf("new owner state wrong: %+v", got)
	}

	stored := fx.facilities.facilities[fac.ID]
	if stored.OwnerID == nil || *stored.OwnerID != newOwner.ID {
		t.Fatal("facility not bound to new owner")
	}
	if fx.users.users[oldOwner.ID].Role != identity.RoleUser {
		t.Fatal("old owner not demoted")
	}
	if fx.users.users[oldOwner.ID].OwnerProfile.FacilityID != nil {
		t.Fatal("old owner profile not cleared")
	}
}

func TestReassignToUnknownEmail(t *testing.T) {
	fx := newFixture()
	fac := fx.seedFacility()
	if _, err := fx.svc.Reassign(txCtx(), fac.ID, "ghost@x.com"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
