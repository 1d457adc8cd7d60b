package main

import (
	"costume_rental/internal/config" // Custom import path (Config)
	"costume_rental/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
)

// strptr is a small helper for optional size labels
func strptr(s string) *string { return &s }

// Starter catalog loaded into an empty database
var costumes = []domain.Costume{
	{Name: "Pirate costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("M"), Quantity: 2},
	{Name: "Cowboy costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("L"), Quantity: 1},
	{Name: "Superman costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("XL"), Quantity: 1},
	{Name: "Joker costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("M"), Quantity: 1},
	{Name: "Sherlock Holmes costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("L"), Quantity: 1},
	{Name: "Zorro costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("M"), Quantity: 1},
	{Name: "Gangster costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("XL"), Quantity: 2},
	{Name: "Viking costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("L"), Quantity: 1},
	{Name: "Musketeer costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("M"), Quantity: 1},
	{Name: "Dracula costume", ImageURL: "https://s2.radikal.cloud/2024/11/21/photo_2024-09-17_21-51-27.jpeg", Size: strptr("L"), Quantity: 1},
}

// Main entry point for seeding the starter catalog
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Connect to the database
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Insert each costume
	for _, costume := range costumes {
		if err := db.Create(&costume).Error; err != nil {
			logrus.Fatalf("failed to seed costume %q: %v", costume.Name, err)
		}
		logrus.WithField("name", costume.Name).Info("Costume added")
	}
	logrus.Info("Seeding completed.") // Log successful seeding
}
