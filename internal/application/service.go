package application

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/config"
	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	repo "github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
)

// OTPTTL is the lifetime of reset OTPs, reset tokens and email codes.
const OTPTTL = 10 * time.Minute

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// UserIndex mirrors public profile fields into a search backend.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// AvatarStore persists uploaded avatars and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type Service struct {
	Repo    repo.UserRepository
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Mailer  Mailer
	Logger  *logrus.Logger
	Cfg     *config.Config
	Index   UserIndex
	Avatars AvatarStore
	Now     func() time.Time
}

type Option func(*Service)

func WithUserIndex(x UserIndex) Option     { return func(s *Service) { s.Index = x } }
func WithAvatarStore(a AvatarStore) Option { return func(s *Service) { s.Avatars = a } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.Now = now }
}

func NewService(users repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, mail Mailer, logger *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		Repo:   users,
		JWT:    jwt,
		Redis:  rdb,
		Mailer: mail,
		Logger: logger,
		Cfg:    cfg,
		Now:    time.Now,
	}
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// indexUser is best effort: the store stays the source of truth.
func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil || u == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}
