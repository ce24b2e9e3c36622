// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"mfl/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumFacilities int
	NumRequests   int
	ShouldClean   bool
}

// Run populates the database with the administrative hierarchy, one user
// per role and synthetic facilities and requests.
func Run(db *gorm.DB, opts Options) error {
	if opts.ShouldClean {
		if err := clean(db); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	if err := AdminUnits(db); err != nil {
		return fmt.Errorf("admin units: %w", err)
	}

	users, err := defaultUsers(db)
	if err != nil {
		return fmt.Errorf("users: %w", err)
	}

	factory := NewFactory(db)

	if opts.NumFacilities <= 0 {
		opts.NumFacilities = 50
	}
	facilities, err := factory.CreateFacilities(opts.NumFacilities)
	if err != nil {
		return fmt.Errorf("facilities: %w", err)
	}
	log.Printf("Seeded %d facilities", len(facilities))

	if opts.NumRequests <= 0 {
		opts.NumRequests = 20
	}
	submitter := users[string(models.RolePublic)]
	if err := factory.CreateRequests(opts.NumRequests, submitter, facilities); err != nil {
		return fmt.Errorf("requests: %w", err)
	}
	log.Printf("Seeded %d requests", opts.NumRequests)

	return nil
}

// defaultUsers creates one well-known user per role for local development.
func defaultUsers(db *gorm.DB) (map[string]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ChangeMe-Dev12!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var kampala models.District
	if err := db.Where("name = ?", "Kampala").First(&kampala).Error; err != nil {
		return nil, err
	}

	out := map[string]*models.User{}
	for _, spec := range []struct {
		username string
		role     models.Role
		district *uint
	}{
		{"registry_admin", models.RoleAdmin, nil},
		{"planning_officer", models.RolePlanning, nil},
		{"dho_kampala", models.RoleDistrict, &kampala.ID},
		{"community_user", models.RolePublic, nil},
	} {
		user := models.User{
			Username:   spec.username,
			Email:      spec.username + "@mfl.local",
			Password:   string(hash),
			FullName:   spec.username,
			Role:       spec.role,
			DistrictID: spec.district,
		}
		err := db.Where("username = ?", spec.username).FirstOrCreate(&user).Error
		if err != nil {
			return nil, err
		}
		out[string(spec.role)] = &user
	}
	return out, nil
}

func clean(db *gorm.DB) error {
	// Order respects foreign keys
	for _, table := range []string{
		"status_history_entries",
		"request_documents",
		"facility_requests",
		"facilities",
		"webhook_subscriptions",
		"users",
		"subcounties",
		"districts",
		"regions",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
