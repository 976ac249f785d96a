// seed inserts a local admin plus a handful of test accounts and queued
// deliveries into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/abekov/accountd/internal/infrastructure/postgres"
	"github.com/abekov/accountd/internal/secrets"
	"github.com/abekov/accountd/internal/totp"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@test.local"
	adminPassword = "admin-local-pw"
)

type userSpec struct {
	email    string
	mobile   string
	verified bool
}

var users = []userSpec{
	// Verified accounts, can log in straight away
	{"alice@test.local", "+15550000001", true},
	{"bob@test.local", "+15550000002", true},

	// Pending verification, exercise the verify flow against these
	{"carol@test.local", "", false},
	{"dave@test.local", "+15550000004", false},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set; run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hasher := secrets.NewHasher(bcrypt.DefaultCost)

	adminID := upsertUser(ctx, pool, hasher, adminEmail, adminPassword, "", true, true)
	fmt.Printf("admin %s (%s)\n", adminEmail, adminID)

	for i, spec := range users {
		password := fmt.Sprintf("seed-pw-%03d", i+1)
		id := upsertUser(ctx, pool, hasher, spec.email, password, spec.mobile, spec.verified, false)
		fmt.Printf("user %s (%s) password=%s verified=%v\n", spec.email, id, password, spec.verified)

		// A queued welcome message per user gives the worker something to chew on.
		_, err := pool.Exec(ctx, `
			INSERT INTO deliveries (user_id, channel, recipient, template, params, status, max_attempts)
			VALUES ($1, 'email', $2, 'welcome', '{}', 'pending', 6)`,
			id, spec.email,
		)
		if err != nil {
			log.Fatalf("seed delivery for %s: %v", spec.email, err)
		}
	}

	fmt.Println("done")
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, hasher *secrets.Hasher, email, password, mobile string, verified, admin bool) string {
	passwordHash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("hash password for %s: %v", email, err)
	}

	otpSecret, err := totp.NewSecret()
	if err != nil {
		log.Fatalf("otp secret for %s: %v", email, err)
	}

	var mobilePtr *string
	if mobile != "" {
		mobilePtr = &mobile
	}

	var id string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, mobile_number, password_hash, otp_secret, verified, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		email, mobilePtr, passwordHash, otpSecret, verified, admin,
	).Scan(&id)
	if err != nil {
		log.Fatalf("upsert user %s: %v", email, err)
	}
	return id
}
