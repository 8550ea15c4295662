package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/auth"
	userDatamodel "github.com/frahmantamala/venue-management/internal/core/datamodel/user"
	"github.com/frahmantamala/venue-management/internal/staff"
	staffPostgres "github.com/frahmantamala/venue-management/internal/staff/postgres"
	"github.com/frahmantamala/venue-management/internal/venue"
	venuePostgres "github.com/frahmantamala/venue-management/internal/venue/postgres"
	"github.com/frahmantamala/venue-management/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedPassword = "password123"

// seedTables lists tables in delete order, children first.
var seedTables = []string{
	"payment_webhook_events",
	"password_reset_tokens",
	"staff_invitations",
	"staff_assignments",
	"venues",
	"users",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo owner, manager and venue for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		ctx := context.Background()
		if clearData {
			for _, table := range seedTables {
				if err := gormDB.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
		ownerID, err := seedUser(ctx, gormDB, hasher, "owner@example.com", "Demo Owner")
		if err != nil {
			log.Fatalf("failed to seed owner: %v", err)
		}
		managerID, err := seedUser(ctx, gormDB, hasher, "manager@example.com", "Demo Manager")
		if err != nil {
			log.Fatalf("failed to seed manager: %v", err)
		}

		venueRepo := venuePostgres.NewVenueRepository(gormDB)
		staffService := staff.NewService(staffPostgres.NewStaffRepository(gormDB), nil, nil, venueRepo, staff.Options{}, logger.LoggerWrapper())
		venueService := venue.NewService(venueRepo, staffService, nil, logger.LoggerWrapper())

		ownerCtx := internal.ContextWithIdentity(ctx, &internal.Identity{UserID: ownerID, Email: "owner@example.com"})
		list, err := venueService.ListAccessible(ownerCtx)
		if err != nil {
			log.Fatalf("failed to list venues: %v", err)
		}
		if len(list.Venues) > 0 {
			fmt.Println("Demo venue already exists:", list.Venues[0].Slug)
			return
		}

		created, err := venueService.Create(ownerCtx, venue.CreateVenueDTO{
			Name:     "Demo Bistro",
			Timezone: "America/New_York",
			Currency: "USD",
		})
		if err != nil {
			log.Fatalf("failed to create demo venue: %v", err)
		}
		fmt.Println("Seeded venue:", created.Slug)

		err = staffPostgres.CreateAssignment(ctx, gormDB, &staff.Assignment{
			ID:        uuid.NewString(),
			UserID:    managerID,
			VenueID:   created.VenueID,
			CreatedAt: time.Now().UTC(),
			State:     staff.Active{Role: staff.RoleManager},
		})
		if err != nil && !errors.Is(err, staff.ErrAlreadyActive) {
			log.Fatalf("failed to assign manager: %v", err)
		}

		fmt.Printf("Seeded users owner@example.com and manager@example.com with password %q\n", seedPassword)
	},
}

// seedUser returns the id of the user with email, creating it when absent.
func seedUser(ctx context.Context, db *gorm.DB, hasher *auth.BcryptHasher, email, name string) (string, error) {
	var existing userDatamodel.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		fmt.Println("user already exists:", email)
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	row := &userDatamodel.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return "", err
	}
	fmt.Println("Seeded user:", email)
	return row.ID, nil
}
