package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	repo "github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer/templates"
)

// lookupOrCreatePending returns the user with email, creating a pending record
// for addresses that have not registered yet.
func (s *Service) lookupOrCreatePending(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	u = &entity.User{Email: email, Role: entity.RoleUser, Pending: true}
	err = s.Repo.Create(ctx, u)
	if errors.Is(err, repo.ErrDuplicate) {
		return s.Repo.GetByEmail(ctx, email)
	}
	return u, err
}

// SendEmailVerification mails a verification code and returns the normalized
// address it went to. It reports alreadyVerified without sending when there
// is nothing to verify.
func (s *Service) SendEmailVerification(ctx context.Context, email string) (sentTo string, alreadyVerified bool, err error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", false, ErrEmailRequired
	}
	u, err := s.lookupOrCreatePending(ctx, email)
	if err != nil {
		return "", false, apperror.Internal("failed to send verification email", err)
	}
	if u.EmailVerified {
		return u.Email, true, nil
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return "", false, apperror.Internal("failed to send verification email", err)
	}
	otp := &entity.EmailOTP{CodeHash: helpers.HashSecret(code), ExpiresAt: s.now().Add(OTPTTL)}
	if err := s.Repo.SetEmailOTP(ctx, u.ID, otp); err != nil {
		return "", false, apperror.Internal("failed to send verification email", err)
	}

	if err := s.sendCode(ctx, templates.VerifyEmailOTP, u, code); err != nil {
		// a newer code from a concurrent request stays in place
		clrErr := s.Repo.ClearEmailOTP(ctx, u.ID, otp.CodeHash)
		if clrErr != nil && !errors.Is(clrErr, repo.ErrStateChanged) {
			s.Logger.WithError(clrErr).WithField("user_id", u.ID).Error("email otp rollback failed")
		}
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("send verification email failed")
		metrics.RecordAuth("email_otp_issued", err)
		return "", false, apperror.Wrap(apperror.KindInternal, err.Error(), err)
	}
	metrics.RecordAuth("email_otp_issued", nil)
	return u.Email, false, nil
}

// VerifyEmailOTP marks the address verified when otp matches the active code.
// Unknown addresses are NotFound.
func (s *Service) VerifyEmailOTP(ctx context.Context, email, otp string) (alreadyVerified bool, err error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, apperror.Internal("failed to verify email", err)
	}
	if u.EmailVerified {
		return true, nil
	}

	hash := helpers.HashSecret(otp)
	if !u.EmailOTP.Redeemable(hash, s.now()) {
		metrics.RecordAuth("email_verified", ErrInvalidOTP)
		return false, ErrInvalidOTP
	}
	switch err := s.Repo.ConfirmEmail(ctx, u.ID, hash); {
	case errors.Is(err, repo.ErrStateChanged), errors.Is(err, repo.ErrNotFound):
		return false, ErrInvalidOTP
	case err != nil:
		return false, apperror.Internal("failed to verify email", err)
	}

	metrics.RecordAuth("email_verified", nil)
	helpers.Audit(s.Logger, "email.verified", logrus.Fields{"user_id": u.ID})
	u.EmailVerified, u.EmailOTP = true, nil
	if !u.Pending {
		s.indexUser(ctx, u)
	}
	return false, nil
}
