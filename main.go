package main

import (
	"log"

	"github.com/joho/godotenv"

	"story-content-gateway/config"
	"story-content-gateway/server"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.LoadConfig()

	if cfg.Cache.PolicyFile != "" {
		policy, err := config.LoadCachePolicy(cfg.Cache.PolicyFile)
		if err != nil {
			log.Fatalf("Failed to load cache policy: %v", err)
		}
		if err := cfg.ApplyCachePolicy(policy); err != nil {
			log.Fatalf("Failed to apply cache policy: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	srv := server.NewServer(cfg)

	log.Println("Story Content Gateway starting...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
