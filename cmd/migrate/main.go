package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dbURL := flag.String("db", "", "Database URL (defaults to APP_DATABASE_URL)")
	path := flag.String("path", "./migrations", "Path to migrations directory")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 0, "Number of steps to apply (0 means all)")
	flag.Parse()

	url := *dbURL
	if url == "" {
		url = os.Getenv("APP_DATABASE_URL")
	}
	if url == "" {
		log.Fatal("Database URL must be provided via -db flag or APP_DATABASE_URL environment variable")
	}

	m, err := migrate.New("file://"+*path, url)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	if err := run(m, *direction, *steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("Migration completed (no version)")
	case err != nil:
		log.Fatalf("Failed to read migration version: %v", err)
	default:
		log.Printf("Migration completed (version: %d, dirty: %t)", version, dirty)
	}
}

func run(m *migrate.Migrate, direction string, steps int) error {
	switch direction {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	default:
		return errors.New("invalid direction: " + direction + " (must be 'up' or 'down')")
	}
}
