package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/config"
	"github.com/oksasatya/bizbridge-auth/internal/container"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/internal/infrastructure/memory"
	"github.com/oksasatya/bizbridge-auth/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/bizbridge-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/bizbridge-auth/internal/infrastructure/search"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/internal/router"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
	"github.com/oksasatya/bizbridge-auth/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Credential store
	users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis ping failed, sessions and rate limits unavailable until it recovers")
	}
	cancel()

	// Mail
	sender, closeMailer, err := newMailer(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init %s mailer: %v", cfg.MailTransport, err)
	}
	defer closeMailer()

	// Elasticsearch (optional)
	if len(cfg.ESAddrs()) > 0 {
		es, err := search.NewClient(cfg)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		container.SetUserIndex(search.NewUserIndex(es, cfg.ESUsersIndex))
	}

	// GCS (optional, avatars)
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetAvatarUploader(helpers.NewGCSUploader(gcsClient, cfg.GCSBucket))
	}

	// JWT
	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Provide infra singletons to container for registry wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUsers(users)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetMailer(sender)

	r := router.NewEngine(router.BuildDeps())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// openStore connects the credential store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case "mongo", "mongodb":
		store, err := mongodb.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, nil, err
		}
		return mongodb.NewUserRepository(store), func() { _ = store.Close() }, nil
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptionsFrom(cfg))
		if err != nil {
			return nil, nil, err
		}
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return pginfra.NewUserRepository(pool), pool.Close, nil
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// newMailer picks the transport from MAIL_TRANSPORT. With MAIL_SEND_ENABLED=false
// every message is only logged.
func newMailer(cfg *config.Config, logger *logrus.Logger) (mailer.Sender, func(), error) {
	noop := func() {}
	transport := cfg.MailTransport
	if !cfg.MailSendEnabled {
		transport = "log"
	}

	var sender mailer.Sender
	closeFn := noop
	switch transport {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			return nil, nil, errors.New("mailgun not configured")
		}
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	case "smtp":
		sender = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	case "queue":
		q, err := mailer.NewQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, nil, err
		}
		sender, closeFn = q, q.Close
	case "log":
		sender = mailer.NewLog(logger)
	default:
		return nil, nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", transport)
	}
	logger.WithField("transport", transport).Info("mailer ready")
	return metrics.InstrumentMailer(sender, transport), closeFn, nil
}
