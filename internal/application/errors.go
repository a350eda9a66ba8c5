package application

import "github.com/oksasatya/bizbridge-auth/pkg/apperror"

const msgCreateFailed = "failed to create account, please try again"

var (
	ErrInvalidCredentials = apperror.Unauthorized("Invalid email/phone or password")
	ErrInvalidSession     = apperror.Unauthorized("invalid or expired session")
	ErrEmailTaken         = apperror.Conflict("email already registered")
	ErrPhoneTaken         = apperror.Conflict("phone already registered")
	ErrUserNotFound       = apperror.NotFound("User not found")
	ErrNoUsers            = apperror.NotFound("No users found")
	ErrEmailRequired      = apperror.Validation("Please Enter Your Email")
	ErrOldPassword        = apperror.Validation("old password is incorrect")
	ErrPasswordMismatch   = apperror.Validation("passwords do not match")
	ErrPasswordTooLong    = apperror.Validation("password must be at most 72 bytes")
	ErrInvalidOTP         = apperror.Validation("Invalid or expired OTP")
	ErrTokenRequired      = apperror.Validation("Token is required")
	ErrInvalidResetToken  = apperror.Validation("Reset Password Token is invalid or has expired")
	ErrResetMismatch      = apperror.Validation("Passwords do not match")
	ErrAvatarUnavailable  = apperror.Internal("avatar storage is not configured", nil)
	ErrAdminUndeletable   = apperror.Forbidden("admin accounts cannot be deleted")
)
