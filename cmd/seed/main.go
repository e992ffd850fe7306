package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/oggyb/coffee-chat/internal/config"
	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/logger"
	"github.com/oggyb/coffee-chat/internal/server"
)

func main() {
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	if envErr != nil {
		logger.Warn("no .env file loaded, using process environment", "err", envErr)
	}
	logger.Debug("seeding database", "driver", cfg.DB.Driver)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		logger.Error("failed to seed", "err", err)
		os.Exit(1)
	}
	logger.Info("seeding completed")

	// Print a hash for ADMIN_TOKEN_HASH when a plaintext token is supplied.
	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		hash, err := server.HashToken(token)
		if err != nil {
			logger.Error("failed to hash admin token", "err", err)
			os.Exit(1)
		}
		fmt.Printf("ADMIN_TOKEN_HASH=%s\n", hash)
	}
}
