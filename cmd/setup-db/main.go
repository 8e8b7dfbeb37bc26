package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"story-content-gateway/config"
	"story-content-gateway/database"
)

// setup-db applies the gateway schema to the configured PostgreSQL
// database. The schema file uses IF NOT EXISTS throughout, so re-running
// against an existing database is safe.
func main() {
	schemaPath := flag.String("schema", "database/schema.sql", "path to the schema SQL file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout for schema application")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("Failed to read schema file %s: %v", *schemaPath, err)
	}

	pgConfig := &database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}

	service, err := database.NewPostgresService(pgConfig)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Applying schema from %s to %s/%s", *schemaPath, cfg.Database.Host, cfg.Database.Database)

	if _, err := service.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	log.Println("Schema applied successfully")
}
