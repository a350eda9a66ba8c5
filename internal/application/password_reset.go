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

// The reset flow moves a user through
//
//	NoReset -> OTPIssued -> TokenIssued -> NoReset
//
// Each step after the first is a conditional write on the state that was
// checked, so a code or token redeems at most once.

// ForgotPassword issues a reset OTP and mails it. It returns the address the
// code was sent to. When mailing fails the OTP is withdrawn.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && u.Pending) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", apperror.Internal("failed to start password reset", err)
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return "", apperror.Internal("failed to start password reset", err)
	}
	issued := entity.OTPIssued(helpers.HashSecret(code), s.now().Add(OTPTTL))
	if err := s.Repo.SetReset(ctx, u.ID, issued); err != nil {
		return "", apperror.Internal("failed to start password reset", err)
	}

	if err := s.sendCode(ctx, templates.ResetOTP, u, code); err != nil {
		// only withdraw our own OTP, a newer request may have replaced it
		if rbErr := s.Repo.SwapReset(ctx, u.ID, issued, entity.NoReset()); rbErr != nil && !errors.Is(rbErr, repo.ErrStateChanged) {
			s.Logger.WithError(rbErr).WithField("user_id", u.ID).Error("reset rollback failed")
		}
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("send reset otp failed")
		metrics.RecordAuth("reset_otp_issued", err)
		return "", apperror.Wrap(apperror.KindInternal, err.Error(), err)
	}

	metrics.RecordAuth("reset_otp_issued", nil)
	helpers.Audit(s.Logger, "password_reset.otp_issued", logrus.Fields{"user_id": u.ID})
	return u.Email, nil
}

// VerifyResetOTP exchanges a valid OTP for a single-use reset token. The raw
// token is returned once and only its hash is stored.
func (s *Service) VerifyResetOTP(ctx context.Context, email, otp string) (string, error) {
	token, err := s.verifyResetOTP(ctx, email, otp)
	metrics.RecordAuth("reset_otp_verified", err)
	return token, err
}

func (s *Service) verifyResetOTP(ctx context.Context, email, otp string) (string, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).Error("reset otp lookup failed")
		}
		return "", ErrInvalidOTP
	}
	now := s.now()
	if !u.Reset.Redeemable(entity.ResetOTPIssued, helpers.HashSecret(otp), now) {
		return "", ErrInvalidOTP
	}

	token, err := helpers.GenResetToken()
	if err != nil {
		return "", apperror.Internal("failed to verify OTP", err)
	}
	next := entity.TokenIssued(helpers.HashSecret(token), now.Add(OTPTTL))
	switch err := s.Repo.SwapReset(ctx, u.ID, u.Reset, next); {
	case errors.Is(err, repo.ErrStateChanged), errors.Is(err, repo.ErrNotFound):
		return "", ErrInvalidOTP
	case err != nil:
		return "", apperror.Internal("failed to verify OTP", err)
	}

	helpers.Audit(s.Logger, "password_reset.otp_verified", logrus.Fields{"user_id": u.ID})
	return token, nil
}

// ResetPassword redeems a reset token, stores the new password and opens a session.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirmPassword string) (*entity.User, TokenPair, error) {
	u, pair, err := s.resetPassword(ctx, token, password, confirmPassword)
	metrics.RecordAuth("password_reset", err)
	return u, pair, err
}

func (s *Service) resetPassword(ctx context.Context, token, password, confirmPassword string) (*entity.User, TokenPair, error) {
	if token == "" {
		return nil, TokenPair{}, ErrTokenRequired
	}
	hash := helpers.HashSecret(token)
	u, err := s.Repo.GetByResetTokenHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).Error("reset token lookup failed")
		}
		return nil, TokenPair{}, ErrInvalidResetToken
	}
	if !u.Reset.Redeemable(entity.ResetTokenIssued, hash, s.now()) {
		return nil, TokenPair{}, ErrInvalidResetToken
	}
	if password != confirmPassword {
		return nil, TokenPair{}, ErrResetMismatch
	}

	pwHash, err := hashPassword(password, "failed to reset password")
	if err != nil {
		return nil, TokenPair{}, err
	}
	switch err := s.Repo.CompleteReset(ctx, u.ID, u.Reset, pwHash); {
	case errors.Is(err, repo.ErrStateChanged), errors.Is(err, repo.ErrNotFound):
		return nil, TokenPair{}, ErrInvalidResetToken
	case err != nil:
		return nil, TokenPair{}, apperror.Internal("failed to reset password", err)
	}
	u.Password = pwHash
	u.Reset = entity.NoReset()
	helpers.Audit(s.Logger, "password_reset.completed", logrus.Fields{"user_id": u.ID})

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}
