package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/model"
	"authgate/internal/repository"
	"authgate/internal/service"
)

// SeedUserData is one entry in the fixture file.
type SeedUserData struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func main() {
	fixturePath := flag.String("fixture", "seed/users.json", "path to the users fixture file")
	flag.Parse()

	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	users, err := loadFixture(*fixturePath)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}
	log.Printf("Loaded %d users from %s", len(users), *fixturePath)

	userRepo := repository.NewUserRepository(gormDB)
	tokenService := auth.NewTokenService(cfg.JWTSecret)
	authService := service.NewAuthService(userRepo, tokenService, nil)

	ctx := context.Background()
	created, skipped := 0, 0
	for _, u := range users {
		_, err := authService.Register(ctx, u.FirstName, u.LastName, u.Email, u.Password)
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrUserAlreadyExists):
			skipped++
		default:
			log.Fatalf("Failed to seed user %s: %v", u.Email, err)
		}
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - New users created: %d", created)
	log.Printf("  - Existing users skipped: %d", skipped)
}

// loadFixture reads and parses the users fixture file.
func loadFixture(path string) ([]SeedUserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var users []SeedUserData
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}
