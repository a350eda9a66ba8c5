package entity

import (
	"crypto/subtle"
	"time"
)

// ResetStage tags the password reset flow a user is in.
type ResetStage string

const (
	ResetNone        ResetStage = "none"
	ResetOTPIssued   ResetStage = "otp"
	ResetTokenIssued ResetStage = "token"
)

// ResetState is the password reset flow of a single user:
//
//	NoReset -> OTPIssued -> TokenIssued -> NoReset
//
// SecretHash is the SHA-256 hex of the OTP or of the reset token, depending on
// Stage. The zero value is NoReset. Build values with the constructors so an
// issued stage always has both a hash and an expiry.
type ResetState struct {
	Stage      ResetStage
	SecretHash string
	ExpiresAt  time.Time
}

func NoReset() ResetState {
	return ResetState{Stage: ResetNone}
}

func OTPIssued(otpHash string, expiresAt time.Time) ResetState {
	return ResetState{Stage: ResetOTPIssued, SecretHash: otpHash, ExpiresAt: expiresAt}
}

func TokenIssued(tokenHash string, expiresAt time.Time) ResetState {
	return ResetState{Stage: ResetTokenIssued, SecretHash: tokenHash, ExpiresAt: expiresAt}
}

// Normalize maps the zero value to NoReset.
func (r ResetState) Normalize() ResetState {
	if r.Stage == "" || r.Stage == ResetNone {
		return NoReset()
	}
	return r
}

// IsNone reports whether no reset flow is in progress.
func (r ResetState) IsNone() bool {
	return r.Normalize().Stage == ResetNone
}

// Redeemable reports whether the state is in stage, not expired at now, and
// guarded by hash. The hash comparison is constant time.
func (r ResetState) Redeemable(stage ResetStage, hash string, now time.Time) bool {
	if r.Stage != stage || stage == ResetNone || r.SecretHash == "" {
		return false
	}
	if !now.Before(r.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(r.SecretHash), []byte(hash)) == 1
}
