// Command main runs the database seeder for Steeple.
package main

import (
	"flag"
	"log"

	"steeple/internal/config"
	"steeple/internal/database"
	"steeple/internal/seed"
)

func main() {
	numMembers := flag.Int("members", 50, "Number of members to create")
	numThreads := flag.Int("threads", 200, "Number of forum threads to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d members, %d threads, clean=%v\n", *numMembers, *numThreads, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Run(seed.Options{
		NumMembers:  *numMembers,
		NumThreads:  *numThreads,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
