package facility

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carefinder/carefinder/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a Postgres-backed facility repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const facilityColumns = `id, kind, name, description,
	address_line, city, state, postal_code, country,
	lat, lng, phone, email, website, services,
	is_approved, is_active, appointments_enabled, owner_id,
	website_rating, total_reviews,
	google_place_id, google_rating, google_review_count,
	version, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, f *Facility) error {
	f.ID = uuid.New()
	if f.Services == nil {
		f.Services = []string{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO facilities (
			id, kind, name, description,
			address_line, city, state, postal_code, country,
			lat, lng, phone, email, website, services,
			is_approved, is_active, appointments_enabled, google_place_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		f.ID, f.Kind, f.Name, f.Description,
		f.Address.Line, f.Address.City, f.Address.State, f.Address.PostalCode, f.Address.Country,
		f.Location.Lat, f.Location.Lng, f.Phone, f.Email, f.Website, f.Services,
		f.IsApproved, f.IsActive, f.AppointmentsEnabled, f.GooglePlaceID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, f *Facility) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET
			name = $3, description = $4,
			address_line = $5, city = $6, state = $7, postal_code = $8, country = $9,
			lat = $10, lng = $11, phone = $12, email = $13, website = $14, services = $15,
			google_place_id = $16,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`,
		f.ID, f.Version, f.Name, f.Description,
		f.Address.Line, f.Address.City, f.Address.State, f.Address.PostalCode, f.Address.Country,
		f.Location.Lat, f.Location.Lng, f.Phone, f.Email, f.Website, f.Services,
		f.GooglePlaceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	f.Version++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func buildFilter(filter ListFilter) (string, []interface{}) {
	where := ``
	var args []interface{}
	idx := 1

	and := func(clause string, arg interface{}) {
		where += fmt.Sprintf(" AND "+clause, idx)
		args = append(args, arg)
		idx++
	}

	if filter.PublicOnly {
		where += ` AND is_approved = TRUE AND is_active = TRUE`
	}
	if filter.Kind != "" {
		and(`kind = $%d`, string(filter.Kind))
	}
	if filter.City != "" {
		and(`LOWER(city) = LOWER($%d)`, filter.City)
	}
	if filter.State != "" {
		and(`LOWER(state) = LOWER($%d)`, filter.State)
	}
	if filter.PostalCode != "" {
		and(`postal_code = $%d`, filter.PostalCode)
	}
	if filter.Service != "" {
		and(`$%d = ANY(services)`, filter.Service)
	}
	if filter.Query != "" {
		and(`name ILIKE $%d`, "%"+filter.Query+"%")
	}
	return where, args
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Facility, int, error) {
	where, args := buildFilter(filter)
	countQuery := `SELECT COUNT(*) FROM facilities WHERE 1=1` + where
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE 1=1` + where

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	facilities, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return facilities, total, nil
}

func (r *repoPG) ListAll(ctx context.Context, filter ListFilter) ([]*Facility, error) {
	where, args := buildFilter(filter)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE 1=1`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) SetApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	// Approval and activation travel together: an approved facility is live.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET is_approved = $2, is_active = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1`, id, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) SetOwner(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, appointmentsEnabled bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET owner_id = $2, appointments_enabled = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1`, id, ownerID, appointmentsEnabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) SetAppointmentsEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET appointments_enabled = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1`, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, total int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET website_rating = $2, total_reviews = $3, updated_at = NOW()
		WHERE id = $1`, id, rating, total)
	return err
}

func (r *repoPG) UpdateGoogleRating(ctx context.Context, id uuid.UUID, rating float64, count int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET google_rating = $2, google_review_count = $3, updated_at = NOW()
		WHERE id = $1`, id, rating, count)
	return err
}

func (r *repoPG) ListWithPlaceIDs(ctx context.Context) ([]*Facility, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE google_place_id <> '' ORDER BY updated_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Facility, error) {
	var facilities []*Facility
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

func (r *repoPG) scan(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(
		&f.ID, &f.Kind, &f.Name, &f.Description,
		&f.Address.Line, &f.Address.City, &f.Address.State, &f.Address.PostalCode, &f.Address.Country,
		&f.Location.Lat, &f.Location.Lng, &f.Phone, &f.Email, &f.Website, &f.Services,
		&f.IsApproved, &f.IsActive, &f.AppointmentsEnabled, &f.OwnerID,
		&f.WebsiteRating, &f.TotalReviews,
		&f.GooglePlaceID, &f.GoogleRating, &f.GoogleReviewCount,
		&f.Version, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Facility, error) {
	var f Facility
	err := rows.Scan(
		&f.ID, &f.Kind, &f.Name, &f.Description,
		&f.Address.Line, &f.Address.City, &f.Address.State, &f.Address.PostalCode, &f.Address.Country,
		&f.Location.Lat, &f.Location.Lng, &f.Phone, &f.Email, &f.Website, &f.Services,
		&f.IsApproved, &f.IsActive, &f.AppointmentsEnabled, &f.OwnerID,
		&f.WebsiteRating, &f.TotalReviews,
		&f.GooglePlaceID, &f.GoogleRating, &f.GoogleReviewCount,
		&f.Version, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
