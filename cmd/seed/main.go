package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/bizbridge-auth/config"
	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
	"github.com/oksasatya/bizbridge-auth/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/bizbridge-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

// seed creates (or promotes) the admin account used for the /api/admin routes.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var users repository.UserRepository
	switch cfg.StoreDriver {
	case "mongo", "mongodb":
		store, err := mongodb.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() { _ = store.Close() }()
		users = mongodb.NewUserRepository(store)
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptionsFrom(cfg))
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		users = pginfra.NewUserRepository(pool)
	default:
		log.Fatalf("seed needs a persistent store, got STORE_DRIVER=%q", cfg.StoreDriver)
	}

	email := getenv("SEED_ADMIN_EMAIL", "admin@bizbridge.local")
	password := getenv("SEED_ADMIN_PASSWORD", "password123")
	name := getenv("SEED_ADMIN_NAME", "Administrator")

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	admin := &entity.User{
		Email:         email,
		Name:          name,
		Password:      hash,
		Role:          entity.RoleAdmin,
		EmailVerified: true,
	}
	err = users.Create(ctx, admin)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, gErr := users.GetByEmail(ctx, email)
		if gErr != nil {
			log.Fatalf("failed to load existing admin: %v", gErr)
		}
		if err := users.UpdatePassword(ctx, existing.ID, hash); err != nil {
			log.Fatalf("failed to reset admin password: %v", err)
		}
		fmt.Printf("admin already exists: id=%s email=%s role=%s (password reset)\n", existing.ID, email, existing.Role)
		return
	}
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", admin.ID, email, password)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
