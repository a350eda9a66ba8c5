package application

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	repo "github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

type RegisterInput struct {
	Email    string
	Phone    string
	Password string
	Name     string
}

// Register creates an account, or completes a pending record left by
// pre-signup email verification, and opens a session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, TokenPair, error) {
	u, pair, err := s.register(ctx, in)
	metrics.RecordAuth("register", err)
	return u, pair, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*entity.User, TokenPair, error) {
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	pending, err := s.Repo.GetByEmail(ctx, email)
	switch {
	case err == nil && !pending.Pending:
		return nil, TokenPair{}, ErrEmailTaken
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return nil, TokenPair{}, apperror.Internal(msgCreateFailed, err)
	case err != nil:
		pending = nil
	}

	if other, err := s.Repo.GetByPhone(ctx, phone); err == nil {
		if pending == nil || other.ID != pending.ID {
			return nil, TokenPair{}, ErrPhoneTaken
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, TokenPair{}, apperror.Internal(msgCreateFailed, err)
	}

	hash, err := hashPassword(in.Password, msgCreateFailed)
	if err != nil {
		return nil, TokenPair{}, err
	}
	u := &entity.User{
		Email:    email,
		Phone:    phone,
		Name:     strings.TrimSpace(in.Name),
		Password: hash,
		Role:     entity.RoleUser,
	}
	if pending != nil {
		u.ID = pending.ID
		err = s.Repo.CompleteRegistration(ctx, u)
	} else {
		err = s.Repo.Create(ctx, u)
	}
	if errors.Is(err, repo.ErrDuplicate) {
		// lost a race against a concurrent registration
		return nil, TokenPair{}, s.duplicateConflict(ctx, email)
	}
	if err != nil {
		s.Logger.WithError(err).WithField("email", email).Error("create user failed")
		return nil, TokenPair{}, apperror.Internal(msgCreateFailed, err)
	}

	helpers.Audit(s.Logger, "user.registered", logrus.Fields{"user_id": u.ID})
	s.indexUser(ctx, u)

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// duplicateConflict picks the conflict message after a unique index rejected a write.
func (s *Service) duplicateConflict(ctx context.Context, email string) error {
	if u, err := s.Repo.GetByEmail(ctx, email); err == nil && !u.Pending {
		return ErrEmailTaken
	}
	return ErrPhoneTaken
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnCompare spends one bcrypt comparison so a missing account costs the
// same time as a wrong password.
func burnCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = helpers.HashPassword("invalid-password-placeholder")
	})
	_ = helpers.CompareHashAndPassword(dummyHash, password)
}

// Authenticate resolves identifier as an email when it contains "@", otherwise
// as a phone, and checks the password. Every failure is ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*entity.User, error) {
	var (
		u   *entity.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.Repo.GetByEmail(ctx, normalizeEmail(identifier))
	} else {
		u, err = s.Repo.GetByPhone(ctx, strings.TrimSpace(identifier))
	}
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).Error("credential lookup failed")
		}
		burnCompare(password)
		return nil, ErrInvalidCredentials
	}
	if u.Pending || u.Password == "" {
		burnCompare(password)
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, identifier, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, identifier, password)
	metrics.RecordAuth("login", err)
	if err != nil {
		helpers.Audit(s.Logger, "login.failed", nil)
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	helpers.Audit(s.Logger, "login.succeeded", logrus.Fields{"user_id": u.ID})
	return u, pair, nil
}

// hashPassword bcrypts plain, reporting the length limit as a validation error.
func hashPassword(plain, failMsg string) (string, error) {
	hash, err := helpers.HashPassword(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", apperror.Internal(failMsg, err)
	}
	return hash, nil
}
