// seed inserts a development user for local testing.
// Idempotent: skips the insert if the dev user (auth0|dev-user-123) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"hattbooks/backend/internal/config"
	"hattbooks/backend/internal/db"
	"hattbooks/backend/internal/security"
	"hattbooks/backend/internal/user/domain"
	userrepo "hattbooks/backend/internal/user/repository"
)

const (
	devAuth0ID  = "auth0|dev-user-123"
	devEmail    = "dev@hattbooks.com"
	devUsername = "devuser"
	devPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByAuth0ID(ctx, devAuth0ID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists as %s). Skipping.", devAuth0ID, existing.Username)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Auth0ID:      devAuth0ID,
		Email:        devEmail,
		Username:     devUsername,
		DisplayName:  "Dev User",
		PasswordHash: passwordHash,
		AuthProvider: domain.ProviderAuth0,
		Avatar:       "https://api.dicebear.com/7.x/avataaars/svg?seed=dev",
		Bio:          "Development test user for HattBooks",
		IsActive:     true,
		LastLogin:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Printf("Dev user created: %s (%s)", user.Username, user.ID)
	log.Printf("Use this auth0Id for testing: %s", devAuth0ID)
}
