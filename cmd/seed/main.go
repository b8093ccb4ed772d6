// Seeds the development database with demo links and click histories.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/karloscodes/cartridge"

	"leadtrace/internal/config"
	"leadtrace/internal/database"
	"leadtrace/internal/seeder"
)

func main() {
	linkCount := flag.Int("links", 50, "number of demo links to create")
	flag.Parse()

	cfg := config.GetConfig()
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	se := seeder.NewSeeder(dbManager, logger, *linkCount)
	if err := se.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
