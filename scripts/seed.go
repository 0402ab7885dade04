//go:build ignore

// Seeds a development database with a verified user and one project.
// Run with: go run scripts/seed.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/database"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/pkg/config"
	"github.com/hugh/canicloud/pkg/crypto"
	"github.com/hugh/canicloud/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.IsProduction() {
		log.Fatal("refusing to seed a production database")
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	envelope, err := crypto.NewEnvelope(cfg.Encryption.Key, cfg.Encryption.Randomizer)
	if err != nil {
		log.Fatalf("failed to create envelope: %v", err)
	}

	st := store.New(db)
	authService := auth.NewService(auth.ServiceConfig{
		Store:    st,
		JWT:      auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer),
		Envelope: envelope,
		Logger:   logger,
	})

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if email == "" {
		email = "dev@example.com"
	}
	if password == "" {
		password = "devpass123"
	}

	ctx := context.Background()

	// Development OTPs are always 123456.
	if err := authService.SendOTP(ctx, email, models.OTPTypeSignup); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("User already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to send otp: %v", err)
	}
	if _, err := authService.VerifyOTP(ctx, email, models.OTPTypeSignup, "123456"); err != nil {
		log.Fatalf("failed to verify otp: %v", err)
	}

	resp, err := authService.SignupWithEmailPassword(ctx, auth.SignupInput{
		Email:    email,
		Password: password,
		Username: "dev",
	})
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}

	project := &models.Project{
		OwnerID:         resp.User.ID,
		Name:            "demo",
		DatabaseVersion: models.DatabaseVersionFree,
	}
	if err := st.Projects().Create(ctx, project); err != nil {
		log.Fatalf("failed to create project: %v", err)
	}

	fmt.Printf("User created: %s\n", email)
	fmt.Printf("Project: %s (%s)\n", project.Name, project.ID)
	fmt.Printf("Token: %s\n", resp.Token)
}
