package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *Service) signPair(u *entity.User, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid, string(u.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid, string(u.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// IssueTokens generates access/refresh tokens and records the session in
// Redis, replacing any previous session of the user.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("sign session tokens failed")
		return TokenPair{}, apperror.Internal("failed to create session", err)
	}

	key := helpers.SessionKey(u.ID)
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"role":       string(u.Role),
		"sid":        sid,
		"created_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, s.JWT.RefreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.Logger.WithError(err).WithField("key", key).Error("redis session write failed")
		return TokenPair{}, apperror.Internal("failed to create session", err)
	}
	return pair, nil
}

// Refresh rotates the session id and both tokens when the refresh token
// belongs to the current session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*entity.User, TokenPair, error) {
	u, pair, err := s.refresh(ctx, refreshToken)
	metrics.RecordAuth("refresh", err)
	return u, pair, err
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (*entity.User, TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, TokenPair{}, ErrInvalidSession
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, TokenPair{}, ErrInvalidSession
	}

	key := helpers.SessionKey(u.ID)
	current, err := s.Redis.HGet(ctx, key, "sid").Result()
	if err != nil || current != claims.SessionID {
		return nil, TokenPair{}, ErrInvalidSession
	}

	sid := uuid.NewString()
	pair, err := s.signPair(u, sid)
	if err != nil {
		return nil, TokenPair{}, apperror.Internal("failed to refresh session", err)
	}
	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"sid":        sid,
		"role":       string(u.Role),
		"updated_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, s.JWT.RefreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, TokenPair{}, apperror.Internal("failed to refresh session", err)
	}
	return u, pair, nil
}

// Logout drops the Redis session the access token belongs to. A token that
// does not parse, or belongs to an older session, is ignored.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return
	}
	key := helpers.SessionKey(claims.UserID)
	current, err := s.Redis.HGet(ctx, key, "sid").Result()
	if err != nil || current != claims.SessionID {
		return
	}
	if err := s.Redis.Del(ctx, key).Err(); err != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("redis session delete failed")
	}
}

func (s *Service) dropSession(ctx context.Context, userID string) {
	if err := s.Redis.Del(ctx, helpers.SessionKey(userID)).Err(); err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("redis session delete failed")
	}
}

// touchSession refreshes cached profile fields while keeping the session TTL.
func (s *Service) touchSession(ctx context.Context, u *entity.User) {
	key := helpers.SessionKey(u.ID)
	n, err := s.Redis.Exists(ctx, key).Result()
	if err != nil || n == 0 {
		return
	}
	if err := s.Redis.HSet(ctx, key, map[string]any{
		"email":      u.Email,
		"name":       u.Name,
		"updated_at": nowRFC3339(),
	}).Err(); err != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("redis session update failed")
	}
}
