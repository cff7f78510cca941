package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/readly/config"
	pginfra "github.com/oksasatya/readly/internal/infrastructure/postgres"
	"github.com/oksasatya/readly/pkg/helpers"
)

// seed creates or promotes the admin account named by SEED_ADMIN_EMAIL.
// This is the only way to grant the admin role.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, ApplicationName: cfg.AppName + "-seed"})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	hash, err := helpers.HashPasswordCost(cfg.SeedAdminPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	repo := pginfra.NewUserRepository(pool)
	id, err := repo.PromoteAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminName, hash)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	logger.WithField("user_id", id).WithField("email", cfg.SeedAdminEmail).Info("admin account ready")
}
