// seed inserts development sample users for local testing.
// Idempotent: skips inserts when god@example.com already exists.
// When ASSERTION_PRIVATE_KEY is set (PEM or a path to one), it also prints a
// signed login assertion per user so POST /auth/login can be exercised by hand.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"tenant-access-gate/backend/internal/config"
	"tenant-access-gate/backend/internal/db"
	"tenant-access-gate/backend/internal/security"
	"tenant-access-gate/backend/internal/user/domain"
	userrepo "tenant-access-gate/backend/internal/user/repository"
)

var devUsers = []struct {
	email string
	name  string
	role  domain.Role
}{
	{"god@example.com", "Root Operator", domain.RoleGod},
	{"admin@example.com", "Platform Admin", domain.RoleAdmin},
	{"staff@example.com", "Support Staff", domain.RoleStaff},
	{"teacher@example.com", "Dev Teacher", domain.RoleTeacher},
	{"student@example.com", "Dev Student", domain.RoleStudent},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is required")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := userrepo.NewPostgresRepository(sqlDB)

	existing, err := users.GetByEmail(ctx, devUsers[0].email)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, skipping inserts", devUsers[0].email)
		printAssertions(ctx, cfg, users)
		return
	}

	for _, du := range devUsers {
		u := &domain.User{
			ID:     uuid.New().String(),
			Email:  du.email,
			Name:   du.name,
			Role:   du.role,
			Status: domain.UserStatusActive,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("seed: create %s: %v", du.email, err)
		}
		log.Printf("seed: created %s (%s)", du.email, du.role)
	}

	printAssertions(ctx, cfg, users)
}

// printAssertions mints a short-lived login assertion per dev user when a
// signing key is configured, so login can be driven with curl.
func printAssertions(ctx context.Context, cfg *config.Config, users *userrepo.PostgresRepository) {
	raw := os.Getenv("ASSERTION_PRIVATE_KEY")
	if raw == "" {
		return
	}
	signer, err := security.ParsePrivateKey(raw)
	if err != nil {
		log.Fatalf("seed: ASSERTION_PRIVATE_KEY: %v", err)
	}

	for _, du := range devUsers {
		u, err := users.GetByEmail(ctx, du.email)
		if err != nil || u == nil {
			log.Printf("seed: lookup %s: %v", du.email, err)
			continue
		}
		assertion, err := security.SignAssertion(signer,
			cfg.AssertionIssuer, cfg.AssertionAudience, u.ID, u.Email, time.Hour)
		if err != nil {
			log.Fatalf("seed: sign assertion for %s: %v", du.email, err)
		}
		fmt.Printf("%s\t%s\n", du.email, assertion)
	}
}
