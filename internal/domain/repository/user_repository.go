package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when an insert or update collides with a unique email or phone.
	ErrDuplicate = errors.New("user already exists")
	// ErrStateChanged is returned by conditional writes when the stored
	// reset or verification state no longer matches the expected one.
	ErrStateChanged = errors.New("user state changed concurrently")
)

// ProfileUpdate lists the profile fields a user may change. Empty fields are left untouched.
type ProfileUpdate struct {
	Name      string
	Phone     string
	AvatarURL string
}

// UserRepository defines the credential store. Every driver must apply the
// conditional writes (SwapReset, CompleteReset, ConfirmEmail) atomically on a
// single user record.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)
	// GetByResetTokenHash returns the user whose reset state is TokenIssued
	// with the given hash, regardless of expiry.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error)

	// CompleteRegistration turns a pending record into a registered account.
	CompleteRegistration(ctx context.Context, u *entity.User) error
	UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetReset stores next unconditionally.
	SetReset(ctx context.Context, id string, next entity.ResetState) error
	// SwapReset stores next only if the current state still equals expect
	// (stage and hash), otherwise ErrStateChanged.
	SwapReset(ctx context.Context, id string, expect, next entity.ResetState) error
	// CompleteReset replaces the password and clears the reset state if the
	// current state still equals expect, otherwise ErrStateChanged.
	CompleteReset(ctx context.Context, id string, expect entity.ResetState, passwordHash string) error

	// SetEmailOTP stores (or clears, when otp is nil) the verification code.
	SetEmailOTP(ctx context.Context, id string, otp *entity.EmailOTP) error
	// ClearEmailOTP removes the code only if its hash still equals codeHash,
	// otherwise ErrStateChanged.
	ClearEmailOTP(ctx context.Context, id, codeHash string) error
	// ConfirmEmail marks the email verified and clears the code if the stored
	// code hash still equals codeHash, otherwise ErrStateChanged.
	ConfirmEmail(ctx context.Context, id, codeHash string) error

	// ListByRole returns users with the given role, newest first.
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)
	Delete(ctx context.Context, id string) error
}
