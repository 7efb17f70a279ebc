package identity

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

// NewRepo creates a Postgres-backed user repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userColumns = `id, name, email, password_hash, role, is_active,
	owner_facility_kind, owner_facility_id, owner_is_verified,
	owner_business_license, owner_registration_number,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, user *User) error {
	user.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.IsActive,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *repoPG) Update(ctx context.Context, user *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET
			name = $2, email = $3, password_hash = $4, role = $5, is_active = $6,
			owner_facility_kind = $7, owner_facility_id = $8, owner_is_verified = $9,
			owner_business_license = $10, owner_registration_number = $11,
			updated_at = NOW()
		WHERE id = $1`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.IsActive,
		user.OwnerProfile.FacilityKind, user.OwnerProfile.FacilityID, user.OwnerProfile.IsVerified,
		user.OwnerProfile.BusinessLicense, user.OwnerProfile.RegistrationNumber,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	countQuery := `SELECT COUNT(*) FROM users`
	var args []interface{}
	idx := 1

	if role != "" {
		clause := fmt.Sprintf(` WHERE role = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, role)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) ListPendingClaims(ctx context.Context, limit, offset int) ([]*User, int, error) {
	const where = ` FROM users WHERE owner_facility_id IS NOT NULL AND owner_is_verified = FALSE`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userColumns+where+` ORDER BY updated_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.OwnerProfile.FacilityKind, &u.OwnerProfile.FacilityID, &u.OwnerProfile.IsVerified,
		&u.OwnerProfile.BusinessLicense, &u.OwnerProfile.RegistrationNumber,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) scanUserRow(rows pgx.Rows) (*User, error) {
	var u User
	err := rows.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.OwnerProfile.FacilityKind, &u.OwnerProfile.FacilityID, &u.OwnerProfile.IsVerified,
		&u.OwnerProfile.BusinessLicense, &u.OwnerProfile.RegistrationNumber,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
