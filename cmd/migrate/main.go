package main

import (
	"costume_rental/internal/config" // Custom import path (Config)
	"costume_rental/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Run schema migration
}
