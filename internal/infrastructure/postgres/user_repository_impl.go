package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
)

const userColumns = `id::text, email, COALESCE(phone, ''), password_hash, name, avatar_url, role,
	email_verified, pending, email_otp_hash, email_otp_expires_at,
	reset_kind, reset_secret_hash, reset_expires_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// wrapError maps pgx errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return repository.ErrDuplicate
		case "22P02": // malformed uuid in a lookup
			return repository.ErrNotFound
		}
	}
	return err
}

// nullable stores empty strings as NULL so empty phones stay out of the unique index.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var (
		role               string
		otpHash, resetHash *string
		otpExp, resetExp   *time.Time
		resetKind          string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.Password, &u.Name, &u.AvatarURL, &role,
		&u.EmailVerified, &u.Pending, &otpHash, &otpExp,
		&resetKind, &resetHash, &resetExp, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, wrapError(err)
	}
	u.Role = entity.Role(role)
	if otpHash != nil && otpExp != nil {
		u.EmailOTP = &entity.EmailOTP{CodeHash: *otpHash, ExpiresAt: *otpExp}
	}
	switch entity.ResetStage(resetKind) {
	case entity.ResetOTPIssued:
		u.Reset = entity.OTPIssued(*resetHash, *resetExp)
	case entity.ResetTokenIssued:
		u.Reset = entity.TokenIssued(*resetHash, *resetExp)
	default:
		u.Reset = entity.NoReset()
	}
	return u, nil
}

// resetColumns flattens a ResetState into (kind, hash, expiry) column values.
func resetColumns(r entity.ResetState) (string, *string, *time.Time) {
	r = r.Normalize()
	if r.Stage == entity.ResetNone {
		return string(entity.ResetNone), nil, nil
	}
	exp := r.ExpiresAt
	return string(r.Stage), &r.SecretHash, &exp
}

func (r *UserRepository) queryOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	kind, hash, exp := resetColumns(u.Reset)
	var otpHash *string
	var otpExp *time.Time
	if u.EmailOTP != nil {
		otpHash, otpExp = &u.EmailOTP.CodeHash, &u.EmailOTP.ExpiresAt
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, phone, password_hash, name, avatar_url, role, email_verified, pending,
			email_otp_hash, email_otp_expires_at, reset_kind, reset_secret_hash, reset_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id::text, created_at, updated_at
	`, u.Email, nullable(u.Phone), u.Password, u.Name, u.AvatarURL, string(u.Role), u.EmailVerified, u.Pending,
		otpHash, otpExp, kind, hash, exp)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return wrapError(err)
	}
	u.Reset = u.Reset.Normalize()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.queryOne(ctx, `id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.queryOne(ctx, `email = $1`, email)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	if phone == "" {
		return nil, repository.ErrNotFound
	}
	return r.queryOne(ctx, `phone = $1`, phone)
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error) {
	if tokenHash == "" {
		return nil, repository.ErrNotFound
	}
	return r.queryOne(ctx, `reset_kind = 'token' AND reset_secret_hash = $1`, tokenHash)
}

// exec runs a single-row update and maps "no row touched" to notMatched.
func (r *UserRepository) exec(ctx context.Context, notMatched error, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return wrapError(err)
	}
	if res.RowsAffected() == 0 {
		return notMatched
	}
	return nil
}

// missingOr distinguishes a deleted user from a lost conditional write.
func (r *UserRepository) missingOr(ctx context.Context, id string, err error) error {
	if err == nil || !errors.Is(err, repository.ErrStateChanged) {
		return err
	}
	if _, gErr := r.GetByID(ctx, id); errors.Is(gErr, repository.ErrNotFound) {
		return repository.ErrNotFound
	}
	return err
}

func (r *UserRepository) CompleteRegistration(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET phone = $2, name = $3, password_hash = $4, role = $5, pending = FALSE, updated_at = now()
		WHERE id = $1 AND pending
		RETURNING `+userColumns,
		u.ID, nullable(u.Phone), u.Name, u.Password, string(u.Role))
	out, err := scanUser(row)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return err
	}
	*u = *out
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, in repository.ProfileUpdate) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
		    phone = COALESCE(NULLIF($3, ''), phone),
		    avatar_url = COALESCE(NULLIF($4, ''), avatar_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, in.Name, in.Phone, in.AvatarURL)
	return scanUser(row)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, repository.ErrNotFound,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *UserRepository) SetReset(ctx context.Context, id string, next entity.ResetState) error {
	kind, hash, exp := resetColumns(next)
	return r.exec(ctx, repository.ErrNotFound, `
		UPDATE users SET reset_kind = $2, reset_secret_hash = $3, reset_expires_at = $4, updated_at = now()
		WHERE id = $1`, id, kind, hash, exp)
}

func (r *UserRepository) SwapReset(ctx context.Context, id string, expect, next entity.ResetState) error {
	expKind, expHash, _ := resetColumns(expect)
	kind, hash, exp := resetColumns(next)
	err := r.exec(ctx, repository.ErrStateChanged, `
		UPDATE users SET reset_kind = $4, reset_secret_hash = $5, reset_expires_at = $6, updated_at = now()
		WHERE id = $1 AND reset_kind = $2 AND reset_secret_hash IS NOT DISTINCT FROM $3`,
		id, expKind, expHash, kind, hash, exp)
	return r.missingOr(ctx, id, err)
}

func (r *UserRepository) CompleteReset(ctx context.Context, id string, expect entity.ResetState, passwordHash string) error {
	expKind, expHash, _ := resetColumns(expect)
	err := r.exec(ctx, repository.ErrStateChanged, `
		UPDATE users
		SET password_hash = $4, reset_kind = 'none', reset_secret_hash = NULL, reset_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND reset_kind = $2 AND reset_secret_hash IS NOT DISTINCT FROM $3`,
		id, expKind, expHash, passwordHash)
	return r.missingOr(ctx, id, err)
}

func (r *UserRepository) SetEmailOTP(ctx context.Context, id string, otp *entity.EmailOTP) error {
	var hash *string
	var exp *time.Time
	if otp != nil {
		hash, exp = &otp.CodeHash, &otp.ExpiresAt
	}
	return r.exec(ctx, repository.ErrNotFound, `
		UPDATE users SET email_otp_hash = $2, email_otp_expires_at = $3, updated_at = now()
		WHERE id = $1`, id, hash, exp)
}

func (r *UserRepository) ClearEmailOTP(ctx context.Context, id, codeHash string) error {
	err := r.exec(ctx, repository.ErrStateChanged, `
		UPDATE users SET email_otp_hash = NULL, email_otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND email_otp_hash = $2`, id, codeHash)
	return r.missingOr(ctx, id, err)
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, id, codeHash string) error {
	err := r.exec(ctx, repository.ErrStateChanged, `
		UPDATE users
		SET email_verified = TRUE, email_otp_hash = NULL, email_otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND email_otp_hash = $2`, id, codeHash)
	return r.missingOr(ctx, id, err)
}

func (r *UserRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, repository.ErrNotFound, `DELETE FROM users WHERE id = $1`, id)
}

var _ repository.UserRepository = (*UserRepository)(nil)
