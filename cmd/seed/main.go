package main

import (
	"flag"
	"log"

	"nexus/internal/config"
	"nexus/internal/database"
	"nexus/internal/seed"
)

func main() {
	users := flag.Int("users", 25, "number of users to create")
	networks := flag.Int("networks", 8, "number of networks to create")
	clean := flag.Bool("clean", false, "wipe existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	seeder := seed.NewSeeder(db)
	if err := seeder.Seed(seed.Options{
		NumUsers:    *users,
		NumNetworks: *networks,
		ShouldClean: *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
