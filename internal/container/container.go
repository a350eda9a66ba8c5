package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/config"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/internal/infrastructure/search"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router builds its module deps from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	users       repository.UserRepository
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	mailSender  mailer.Sender

	// optional, nil when not configured
	userIndex *search.UserIndex
	avatars   *helpers.GCSUploader
)

func SetConfig(c *config.Config)               { cfg = c }
func GetConfig() *config.Config                { return cfg }
func SetLogger(l *logrus.Logger)               { logger = l }
func GetLogger() *logrus.Logger                { return logger }
func SetUsers(r repository.UserRepository)     { users = r }
func GetUsers() repository.UserRepository      { return users }
func SetRedis(r *redis.Client)                 { redisClient = r }
func GetRedis() *redis.Client                  { return redisClient }
func SetJWT(m *helpers.JWTManager)             { jwtManager = m }
func GetJWT() *helpers.JWTManager              { return jwtManager }
func SetMailer(s mailer.Sender)                { mailSender = s }
func GetMailer() mailer.Sender                 { return mailSender }
func SetUserIndex(x *search.UserIndex)         { userIndex = x }
func GetUserIndex() *search.UserIndex          { return userIndex }
func SetAvatarUploader(u *helpers.GCSUploader) { avatars = u }
func GetAvatarUploader() *helpers.GCSUploader  { return avatars }
