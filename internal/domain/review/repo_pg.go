package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carefinder/carefinder/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a Postgres-backed review repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reviewColumns = `id, user_id, facility_kind, facility_id, rating, title, comment,
	is_approved, admin_response, helpful_count, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rev *Review) error {
	rev.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reviews (id, user_id, facility_kind, facility_id, rating, title, comment, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rev.ID, rev.UserID, rev.FacilityKind, rev.FacilityID, rev.Rating, rev.Title, rev.Comment, rev.IsApproved,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Review, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, rev *Review) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reviews SET rating = $2, title = $3, comment = $4, is_approved = $5, admin_response = $6, updated_at = NOW()
		WHERE id = $1`,
		rev.ID, rev.Rating, rev.Title, rev.Comment, rev.IsApproved, rev.AdminResponse,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListByFacility(ctx context.Context, facilityID uuid.UUID, approvedOnly bool, limit, offset int) ([]*Review, int, error) {
	where := ` WHERE facility_id = $1`
	if approvedOnly {
		where += ` AND is_approved = TRUE`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reviews`+where, facilityID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews`+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		facilityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *repoPG) HasVote(ctx context.Context, reviewID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM helpful_votes WHERE review_id = $1 AND user_id = $2)`,
		reviewID, userID).Scan(&exists)
	return exists, err
}

func (r *repoPG) AddVote(ctx context.Context, reviewID, userID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO helpful_votes (review_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		reviewID, userID)
	return err
}

func (r *repoPG) RemoveVote(ctx context.Context, reviewID, userID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM helpful_votes WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
	return err
}

func (r *repoPG) CountVotes(ctx context.Context, reviewID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM helpful_votes WHERE review_id = $1`, reviewID).Scan(&count)
	return count, err
}

func (r *repoPG) SetHelpfulCount(ctx context.Context, reviewID uuid.UUID, count int) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE reviews SET helpful_count = $2, updated_at = NOW() WHERE id = $1`, reviewID, count)
	return err
}

func (r *repoPG) AggregateApproved(ctx context.Context, facilityID uuid.UUID) (float64, int, error) {
	var avg float64
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews WHERE facility_id = $1 AND is_approved = TRUE`, facilityID).Scan(&avg, &count)
	return avg, count, err
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Review, error) {
	var reviews []*Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(
			&rev.ID, &rev.UserID, &rev.FacilityKind, &rev.FacilityID, &rev.Rating, &rev.Title, &rev.Comment,
			&rev.IsApproved, &rev.AdminResponse, &rev.HelpfulCount, &rev.CreatedAt, &rev.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, &rev)
	}
	return reviews, rows.Err()
}

func (r *repoPG) scan(row pgx.Row) (*Review, error) {
	var rev Review
	err := row.Scan(
		&rev.ID, &rev.UserID, &rev.FacilityKind, &rev.FacilityID, &rev.Rating, &rev.Title, &rev.Comment,
		&rev.IsApproved, &rev.AdminResponse, &rev.HelpfulCount, &rev.CreatedAt, &rev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}
