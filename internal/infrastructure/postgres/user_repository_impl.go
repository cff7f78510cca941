package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/readly/internal/domain/entity"
	"github.com/oksasatya/readly/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, role, is_verified,
	verification_token, verification_token_expires_at,
	reset_password_token, reset_password_token_expires_at,
	last_login, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// parseID normalizes a user id. Ids that are not UUIDs cannot match a row.
func parseID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// uniqueErr maps unique violations on the users constraints to repository errors.
func uniqueErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return repository.ErrEmailTaken
		case "users_verification_token_key":
			return repository.ErrTokenCollision
		}
	}
	return err
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.IsVerified,
		&u.VerificationToken, &u.VerificationTokenExpiresAt,
		&u.ResetPasswordToken, &u.ResetPasswordTokenExpiresAt,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_verified,
			verification_token, verification_token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, last_login, created_at, updated_at
	`, u.Email, u.Name, u.PasswordHash, string(u.Role), u.IsVerified,
		u.VerificationToken, u.VerificationTokenExpiresAt)

	if err := row.Scan(&u.ID, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return uniqueErr(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE $1 = '' OR role = $1
		ORDER BY created_at
	`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	uid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}
	return r.execOne(ctx, `
		UPDATE users SET last_login = $1, updated_at = now() WHERE id = $2
	`, at, uid)
}

// execOne runs a single-row update and reports ErrNotFound when nothing matched.
func (r *UserRepository) execOne(ctx context.Context, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return uniqueErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, code string, now time.Time) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET is_verified = TRUE,
			verification_token = NULL,
			verification_token_expires_at = NULL,
			updated_at = now()
		WHERE verification_token = $1 AND verification_token_expires_at > $2
		RETURNING `+userColumns, code, now))
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id, code string, expiresAt time.Time) error {
	uid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}
	return r.execOne(ctx, `
		UPDATE users
		SET verification_token = $1, verification_token_expires_at = $2, updated_at = now()
		WHERE id = $3 AND NOT is_verified
	`, code, expiresAt, uid)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	uid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}
	return r.execOne(ctx, `
		UPDATE users
		SET reset_password_token = $1, reset_password_token_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, token, expiresAt, uid)
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $1,
			reset_password_token = NULL,
			reset_password_token_expires_at = NULL,
			updated_at = now()
		WHERE reset_password_token = $2 AND reset_password_token_expires_at > $3
		RETURNING `+userColumns, passwordHash, token, now))
}

// PromoteAdmin upserts a verified admin account. Used by cmd/seed only.
func (r *UserRepository) PromoteAdmin(ctx context.Context, email, name, passwordHash string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_verified)
		VALUES ($1, $2, $3, 'admin', TRUE)
		ON CONFLICT (email) DO UPDATE
		SET role = 'admin', is_verified = TRUE,
			verification_token = NULL, verification_token_expires_at = NULL,
			updated_at = now()
		RETURNING id
	`, email, name, passwordHash).Scan(&id)
	return id, err
}

var _ repository.UserRepository = (*UserRepository)(nil)
