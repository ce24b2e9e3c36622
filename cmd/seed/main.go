// Command main runs the database seeder for the facility registry.
package main

import (
	"flag"
	"log"

	"mfl/internal/config"
	"mfl/internal/database"
	"mfl/internal/seed"
)

func main() {
	// Parse command line flags
	numFacilities := flag.Int("facilities", 50, "Number of facilities to create")
	numRequests := flag.Int("requests", 20, "Number of facility requests to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d facilities, %d requests, clean=%v\n", *numFacilities, *numRequests, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, seed.Options{
		NumFacilities: *numFacilities,
		NumRequests:   *numRequests,
		ShouldClean:   *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Println("📧 All seeded accounts have the password: ChangeMe-Dev12!")
}
