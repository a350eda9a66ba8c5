package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	repo "github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

func (s *Service) getUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	return u, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return s.getUser(ctx, userID)
}

type UpdateProfileInput struct {
	Name  string
	Phone string
}

// UpdateProfile changes name and phone; empty fields are kept. The session
// cache and the search document follow the new values.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	return s.updateProfile(ctx, userID, repo.ProfileUpdate{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
	})
}

func (s *Service) updateProfile(ctx context.Context, userID string, in repo.ProfileUpdate) (*entity.User, error) {
	u, err := s.Repo.UpdateProfile(ctx, userID, in)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return nil, ErrPhoneTaken
	case err != nil:
		return nil, apperror.Internal("failed to update profile", err)
	}
	s.touchSession(ctx, u)
	s.indexUser(ctx, u)
	return u, nil
}

// ChangePassword verifies the old password, stores the new one and opens a
// fresh session.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) (*entity.User, TokenPair, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !helpers.CompareHashAndPassword(u.Password, oldPassword) {
		return nil, TokenPair{}, ErrOldPassword
	}
	if newPassword != confirmPassword {
		return nil, TokenPair{}, ErrPasswordMismatch
	}
	hash, err := hashPassword(newPassword, "failed to update password")
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, TokenPair{}, ErrUserNotFound
		}
		return nil, TokenPair{}, apperror.Internal("failed to update password", err)
	}
	u.Password = hash
	helpers.Audit(s.Logger, "password.changed", logrus.Fields{"user_id": u.ID})
	metrics.RecordAuth("password_change", nil)

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// UploadAvatar stores the image under avatars/<user>/ and points the profile at it.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.Avatars == nil {
		return nil, ErrAvatarUnavailable
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := s.Avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
		return nil, apperror.Internal("failed to upload avatar", err)
	}
	return s.updateProfile(ctx, userID, repo.ProfileUpdate{AvatarURL: url})
}

// ListUsers returns registered non-admin users, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]*entity.User, error) {
	all, err := s.Repo.ListByRole(ctx, entity.RoleUser)
	if err != nil {
		return nil, apperror.Internal("failed to list users", err)
	}
	out := make([]*entity.User, 0, len(all))
	for _, u := range all {
		if !u.Pending {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoUsers
	}
	return out, nil
}

// DeleteUser removes the account, its session and its search document and
// returns the deleted record. Admin accounts are never deleted.
func (s *Service) DeleteUser(ctx context.Context, actorID, id string) (*entity.User, error) {
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin() {
		return nil, ErrAdminUndeletable
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Internal("failed to delete user", err)
	}
	s.dropSession(ctx, id)
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
	}
	helpers.Audit(s.Logger, "user.deleted", logrus.Fields{"user_id": id, "actor_id": actorID})
	return u, nil
}

// SearchUsers queries the search index. Without an index it finds nothing.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.Index == nil || strings.TrimSpace(q) == "" {
		return []map[string]any{}, nil
	}
	hits, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, apperror.Internal("search failed", err)
	}
	return hits, nil
}
