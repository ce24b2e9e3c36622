// Package main provides reviewer role provisioning utilities for the
// facility registry. Self-service signup only creates public accounts,
// so district, planning and admin roles are granted here.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"mfl/internal/config"
	"mfl/internal/database"
	"mfl/internal/models"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go grant <user_id> <role> [district]  - Grant a reviewer role (district role requires a district name or ID)")
		fmt.Println("  go run ./cmd/admin/main.go revoke <user_id>                   - Revoke reviewer role, back to public")
		fmt.Println("  go run ./cmd/admin/main.go list-reviewers                     - List all non-public accounts")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "grant":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run ./cmd/admin/main.go grant <user_id> <role> [district]")
			os.Exit(1)
		}
		district := ""
		if len(os.Args) > 4 {
			district = os.Args[4]
		}
		grantRole(db, os.Args[2], os.Args[3], district)

	case "revoke":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/admin/main.go revoke <user_id>")
			os.Exit(1)
		}
		revokeRole(db, os.Args[2])

	case "list-reviewers":
		listReviewers(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func findUser(db *gorm.DB, userID string) *models.User {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}
	return &user
}

func grantRole(db *gorm.DB, userID, roleArg, districtArg string) {
	role := models.Role(roleArg)
	if !role.Valid() || role == models.RolePublic {
		fmt.Printf("Invalid role %q: expected admin, planning or district\n", roleArg)
		os.Exit(1)
	}

	user := findUser(db, userID)

	var districtID *uint
	if role == models.RoleDistrict {
		if districtArg == "" {
			fmt.Println("The district role requires a district name or ID")
			os.Exit(1)
		}
		district := resolveDistrict(db, districtArg)
		districtID = &district.ID
	}

	user.Role = role
	user.DistrictID = districtID
	if err := db.Save(user).Error; err != nil {
		log.Fatalf("Failed to grant role: %v", err)
	}

	if districtID != nil {
		fmt.Printf("✅ Granted %s role to %s (ID: %d) for district %s\n", role, user.Username, user.ID, districtArg)
	} else {
		fmt.Printf("✅ Granted %s role to %s (ID: %d)\n", role, user.Username, user.ID)
	}
}

func resolveDistrict(db *gorm.DB, arg string) *models.District {
	var district models.District
	query := db.Where("name = ?", arg)
	if id, err := strconv.Atoi(arg); err == nil {
		query = db.Where("id = ?", id)
	}
	if err := query.First(&district).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("District %q not found\n", arg)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}
	return &district
}

func revokeRole(db *gorm.DB, userID string) {
	user := findUser(db, userID)

	if user.Role == models.RolePublic {
		fmt.Printf("User %s (ID: %d) already has the public role\n", user.Username, user.ID)
		return
	}

	previous := user.Role
	user.Role = models.RolePublic
	user.DistrictID = nil
	if err := db.Model(user).Select("role", "district_id").Updates(user).Error; err != nil {
		log.Fatalf("Failed to revoke role: %v", err)
	}

	fmt.Printf("✅ Revoked %s role from %s (ID: %d)\n", previous, user.Username, user.ID)
}

func listReviewers(db *gorm.DB) {
	var reviewers []models.User
	if err := db.Where("role <> ?", models.RolePublic).Order("role, id").Find(&reviewers).Error; err != nil {
		log.Fatalf("Failed to fetch reviewers: %v", err)
	}

	if len(reviewers) == 0 {
		fmt.Println("No reviewer accounts found in the system")
		return
	}

	fmt.Println("\n📋 Reviewer Accounts:")
	fmt.Println("─────────────────────────────────────")
	for _, reviewer := range reviewers {
		line := fmt.Sprintf("ID: %d | Username: %s | Role: %s", reviewer.ID, reviewer.Username, reviewer.Role)
		if reviewer.DistrictID != nil {
			line += fmt.Sprintf(" | District ID: %d", *reviewer.DistrictID)
		}
		fmt.Println(line)
	}
	fmt.Println("─────────────────────────────────────")
}
