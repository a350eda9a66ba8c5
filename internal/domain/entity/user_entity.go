package entity

import (
	"crypto/subtle"
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash and never leaves the service: it has no JSON
// representation.
//
// A Pending user was created by pre-signup email verification and has not
// registered yet; it has no password and cannot log in.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Password      string     `json:"-"`
	Name          string     `json:"name"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Role          Role       `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	Pending       bool       `json:"-"`
	EmailOTP      *EmailOTP  `json:"-"`
	Reset         ResetState `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// EmailOTP is a pending email verification code. Only the hash is kept.
type EmailOTP struct {
	CodeHash  string
	ExpiresAt time.Time
}

// Active reports whether the code can still be redeemed at now.
func (o *EmailOTP) Active(now time.Time) bool {
	return o != nil && now.Before(o.ExpiresAt)
}

// Redeemable reports whether the code is active at now and guarded by hash.
// The hash comparison is constant time.
func (o *EmailOTP) Redeemable(hash string, now time.Time) bool {
	if !o.Active(now) || o.CodeHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(o.CodeHash), []byte(hash)) == 1
}
