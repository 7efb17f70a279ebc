package submission

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

// NewRepo creates a Postgres-backed submission repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const submissionColumns = `id, submitted_by, kind, name, description,
	address_line, city, state, postal_code, country,
	lat, lng, phone, email, website, services,
	status, rejection_reason, approved_facility_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, s *Submission) error {
	s.ID = uuid.New()
	if s.Services == nil {
		s.Services = []string{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO submissions (
			id, submitted_by, kind, name, description,
			address_line, city, state, postal_code, country,
			lat, lng, phone, email, website, services, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		s.ID, s.SubmittedBy, s.Kind, s.Name, s.Description,
		s.Address.Line, s.Address.City, s.Address.State, s.Address.PostalCode, s.Address.Country,
		s.Location.Lat, s.Location.Lng, s.Phone, s.Email, s.Website, s.Services, s.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Submission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) SetDecision(ctx context.Context, s *Submission) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE submissions SET status = $2, rejection_reason = $3, approved_facility_id = $4, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Status, s.RejectionReason, s.ApprovedFacilityID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Submission, int, error) {
	where := ``
	var args []interface{}
	idx := 1
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	subs, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Submission, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE submitted_by = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE submitted_by = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	subs, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Submission, error) {
	var subs []*Submission
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *repoPG) scan(row pgx.Row) (*Submission, error) {
	var s Submission
	err := row.Scan(
		&s.ID, &s.SubmittedBy, &s.Kind, &s.Name, &s.Description,
		&s.Address.Line, &s.Address.City, &s.Address.State, &s.Address.PostalCode, &s.Address.Country,
		&s.Location.Lat, &s.Location.Lng, &s.Phone, &s.Email, &s.Website, &s.Services,
		&s.Status, &s.RejectionReason, &s.ApprovedFacilityID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Submission, error) {
	var s Submission
	err := rows.Scan(
		&s.ID, &s.SubmittedBy, &s.Kind, &s.Name, &s.Description,
		&s.Address.Line, &s.Address.City, &s.Address.State, &s.Address.PostalCode, &s.Address.Country,
		&s.Location.Lat, &s.Location.Lng, &s.Phone, &s.Email, &s.Website, &s.Services,
		&s.Status, &s.RejectionReason, &s.ApprovedFacilityID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
