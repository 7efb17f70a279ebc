package places

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carefinder/carefinder/internal/domain/facility"
)

type stubFetcher struct {
	ratings map[string]*Rating
	calls   int
}

func (s *stubFetcher) FetchRating(_ context.Context, placeID string) (*Rating, error) {
	s.calls++
	r, ok := s.ratings[placeID]
	if !ok {
		return nil, errors.New("place not found")
	}
	return r, nil
}

type stubFacilityRepo struct {
	facilities []*facility.Facility
	updated    map[uuid.UUID]*Rating
	listErr    error
}

func (s *stubFacilityRepo) ListWithPlaceIDs(_ context.Context) ([]*facility.Facility, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.facilities, nil
}

func (s *stubFacilityRepo) UpdateGoogleRating(_ context.Context, id uuid.UUID, rating float64, count int) error {
	if s.updated == nil {
		s.updated = make(map[uuid.UUID]*Rating)
	}
	s.updated[id] = &Rating{Rating: rating, Count: count}
	return nil
}

func (s *stubFacilityRepo) Create(_ context.Context, f *facility.Facility) error { return nil }
func (s *stubFacilityRepo) GetByID(_ context.Context, id uuid.UUID) (*facility.Facility, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubFacilityRepo) GetByIDForUpdate(_ context.Context, id uuid.UUID) (*facility.Facility, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubFacilityRepo) Update(_ context.Context, f *facility.Facility) error { return nil }
func (s *stubFacilityRepo) Delete(_ context.Context, id uuid.UUID) error         { return nil }
func (s *stubFacilityRepo) List(_ context.Context, filter facility.ListFilter, limit, offset int) ([]*facility.Facility, int, error) {
	return nil, 0, nil
}
func (s *stubFacilityRepo) ListAll(_ context.Context, filter facility.ListFilter) ([]*facility.Facility, error) {
	return nil, nil
}
func (s *stubFacilityRepo) SetApproval(_ context.Context, id uuid.UUID, approved bool) error {
	return nil
}
func (s *stubFacilityRepo) SetOwner(_ context.Context, id uuid.UUID, ownerID *uuid.UUID, enabled bool) error {
	return nil
}
func (s *stubFacilityRepo) SetAppointmentsEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	return nil
}
func (s *stubFacilityRepo) UpdateRating(_ context.Context, id uuid.UUID, rating float64, total int) error {
	return nil
}

func TestRefreshAllUpdatesEveryFacility(t *testing.T) {
	a := &facility.Facility{ID: uuid.New(), GooglePlaceID: "place-a"}
	b := &facility.Facility{ID: uuid.New(), GooglePlaceID: "place-b"}
	repo := &stubFacilityRepo{facilities: []*facility.Facility{a, b}}
	fetcher := &stubFetcher{ratings: map[string]*Rating{
		"place-a": {Rating: 4.5, Count: 120},
		"place-b": {Rating: 3.8, Count: 40},
	}}

	r := NewRefresher(fetcher, repo, time.Hour, zerolog.Nop())
	if err := r.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}

	if got := repo.updated[a.ID]; got == nil || got.Rating != 4.5 || got.Count != 120 {
		t.Fatalf("facility a update = %+v, want 4.5/120", got)
	}
	if got := repo.updated[b.ID]; got == nil || got.Rating != 3.8 || got.Count != 40 {
		t.Fatalf("facility b update = %+v, want 3.8/40", got)
	}
}

func TestRefreshAllSkipsFailedFetch(t *testing.T) {
	ok := &facility.Facility{ID: uuid.New(), GooglePlaceID: "place-ok"}
	bad := &facility.Facility{ID: uuid.New(), GooglePlaceID: "place-gone"}
	repo := &stubFacilityRepo{facilities: []*facility.Facility{bad, ok}}
	fetcher := &stubFetcher{ratings: map[string]*Rating{
		"place-ok": {Rating: 4.0, Count: 10},
	}}

	r := NewRefresher(fetcher, repo, time.Hour, zerolog.Nop())
	if err := r.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}

	if _, found := repo.updated[bad.ID]; found {
		t.Fatal("failed fetch must not write an update")
	}
	if _, found := repo.updated[ok.ID]; !found {
		t.Fatal("sweep must continue past a failed facility")
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", fetcher.calls)
	}
}

func TestRefreshAllPropagatesListError(t *testing.T) {
	repo := &stubFacilityRepo{listErr: errors.New("db down")}
	r := NewRefresher(&stubFetcher{}, repo, time.Hour, zerolog.Nop())
	if err := r.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected error when listing fails")
	}
}

func TestRefreshAllStopsOnCancelledContext(t *testing.T) {
	repo := &stubFacilityRepo{facilities: []*facility.Facility{
		{ID: uuid.New(), GooglePlaceID: "place-a"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRefresher(&stubFetcher{}, repo, time.Hour, zerolog.Nop())
	if err := r.RefreshAll(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if len(repo.updated) != 0 {
		t.Fatal("no updates expected after cancellation")
	}
}
