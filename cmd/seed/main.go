// Command seed fills a development database with fake users and activity.
package main

import (
	"context"
	"flag"
	"log"

	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	maxComments := flag.Int("comments", 5, "Maximum comments per post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randomSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	s, err := seed.NewSeeder(db, cfg.BcryptCost, *randomSeed)
	if err != nil {
		log.Fatalf("Failed to build seeder: %v", err)
	}

	summary, err := s.Run(context.Background(), seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		MaxComments: *maxComments,
		ShouldClean: *shouldClean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d likes (password %q)",
		summary.Users, summary.Posts, summary.Comments, summary.Likes, seed.DefaultPassword)
}
