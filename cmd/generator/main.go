package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"kidbook/internal/config"
	"kidbook/internal/database"
	"kidbook/internal/logger"
	"kidbook/internal/models"
	"kidbook/internal/repository"
)

var (
	venueCount  = flag.Int("venues", 3, "Number of demo venues to create")
	parentCount = flag.Int("parents", 20, "Number of demo parents to create")
	credits     = flag.Int("credits", 40, "Monthly credit allocation per parent")
	password    = flag.String("password", "demo1234", "Password for all generated users")
)

var categories = []string{"sports", "arts", "science", "music", "languages"}

var activityTitles = map[string][]string{
	"sports":    {"Junior Football", "Kids Swimming", "Gymnastics Basics"},
	"arts":      {"Watercolor Workshop", "Clay Modelling", "Drawing for Kids"},
	"science":   {"Robotics Lab", "Young Chemists", "Astronomy Club"},
	"music":     {"Piano Starters", "Choir for Kids", "Drum Circle"},
	"languages": {"English Playgroup", "Spanish for Kids", "Storytelling Club"},
}

type demoSeeder struct {
	repos *repository.Repositories
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting demo data generator...")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	seeder := &demoSeeder{repos: repository.NewRepositories(db)}

	if err := seeder.Run(context.Background()); err != nil {
		slog.Error("Failed to generate demo data", "error", err)
		os.Exit(1)
	}

	slog.Info("Demo data generation completed successfully!")
}

func (g *demoSeeder) Run(ctx context.Context) error {
	passwordHash := fmt.Sprintf("%x", sha256.Sum256([]byte(*password)))

	for v := 0; v < *venueCount; v++ {
		venue := &models.Venue{
			Name: fmt.Sprintf("Demo Venue %d", v+1),
			City: "Almaty",
		}
		if err := g.repos.Activities.CreateVenue(ctx, venue); err != nil {
			return fmt.Errorf("failed to create venue: %w", err)
		}

		admin := &models.User{
			Email:        fmt.Sprintf("venue%d@example.com", v+1),
			PasswordHash: passwordHash,
			FirstName:    "Venue",
			Surname:      fmt.Sprintf("Admin%d", v+1),
			Role:         models.RoleVenueAdmin,
			VenueID:      &venue.ID,
			IsActive:     true,
		}
		if err := g.repos.Users.Create(ctx, admin); err != nil {
			return fmt.Errorf("failed to create venue admin: %w", err)
		}

		if err := g.seedActivities(ctx, venue); err != nil {
			return err
		}

		slog.Info("Seeded venue", "venue_id", venue.ID, "name", venue.Name)
	}

	companyID := int64(1)

	hr := &models.User{
		Email:        "hr@example.com",
		PasswordHash: passwordHash,
		FirstName:    "Hanna",
		Surname:      "Resources",
		Role:         models.RoleHRAdmin,
		CompanyID:    &companyID,
		IsActive:     true,
	}
	if err := g.repos.Users.Create(ctx, hr); err != nil {
		return fmt.Errorf("failed to create HR admin: %w", err)
	}

	now := time.Now()
	for p := 0; p < *parentCount; p++ {
		parent := &models.User{
			Email:        fmt.Sprintf("parent%d@example.com", p+1),
			PasswordHash: passwordHash,
			FirstName:    fmt.Sprintf("Parent%d", p+1),
			Surname:      "Demo",
			Role:         models.RoleParent,
			CompanyID:    &companyID,
			IsActive:     true,
		}
		if err := g.repos.Users.Create(ctx, parent); err != nil {
			return fmt.Errorf("failed to create parent: %w", err)
		}

		childCount := 1 + rand.Intn(3)
		for c := 0; c < childCount; c++ {
			age := 4 + rand.Intn(10)
			birthDate := now.AddDate(-age, 0, 0)
			child := &models.Child{
				ParentID:  parent.UserID,
				FirstName: fmt.Sprintf("Child%d-%d", p+1, c+1),
				BirthDate: &birthDate,
			}
			if err := g.repos.Users.CreateChild(ctx, child); err != nil {
				return fmt.Errorf("failed to create child: %w", err)
			}
		}

		if _, err := g.repos.Credits.Allocate(ctx, parent.UserID, now.Year(), int(now.Month()), *credits, hr.UserID); err != nil {
			return fmt.Errorf("failed to allocate credits: %w", err)
		}
	}

	slog.Info("Seeded company users",
		"parents", *parentCount,
		"credits_per_parent", *credits)

	return nil
}

func (g *demoSeeder) seedActivities(ctx context.Context, venue *models.Venue) error {
	now := time.Now()

	for _, category := range categories {
		titles := activityTitles[category]
		title := titles[rand.Intn(len(titles))]
		description := fmt.Sprintf("%s at %s", title, venue.Name)
		ageMin := 4 + rand.Intn(4)

		activity := &models.Activity{
			VenueID:         venue.ID,
			Title:           title,
			Description:     &description,
			Category:        category,
			AgeMin:          ageMin,
			AgeMax:          ageMin + 4 + rand.Intn(4),
			CreditsPerChild: 2 + rand.Intn(5),
		}
		if err := g.repos.Activities.Create(ctx, activity); err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}

		// A couple of weeks of upcoming slots per activity
		for d := 1; d <= 14; d += 2 + rand.Intn(3) {
			startsAt := now.AddDate(0, 0, d).Truncate(time.Hour)
			slot := &models.Slot{
				ActivityID: activity.ID,
				StartsAt:   startsAt,
				EndsAt:     startsAt.Add(time.Hour),
				Capacity:   4 + rand.Intn(8),
			}
			if err := g.repos.Slots.Create(ctx, slot); err != nil {
				return fmt.Errorf("failed to create slot: %w", err)
			}
		}
	}

	return nil
}
