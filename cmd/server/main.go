package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"costume_rental/internal/api"        // Custom package for API handlers
	"costume_rental/internal/catalog"    // Custom package for the costume directory
	"costume_rental/internal/config"     // Custom package for configuration
	"costume_rental/internal/ledger"     // Custom package for the inventory ledger
	"costume_rental/internal/middleware" // Custom package for middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Core components share the single store handle
	ldg := ledger.New(db)  // Inventory ledger
	cat := catalog.New(db) // Costume directory

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Costume routes (protected by JWT)
	costumeGroup := r.Group("/costumes")
	// Protect costume routes with JWT middleware
	costumeGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	costumeGroup.GET("", api.ListCostumesHandler(cat, redisClient))              // Catalog listing endpoint
	costumeGroup.GET("/search", api.SearchCostumesHandler(cat, redisClient))     // Inline search endpoint
	costumeGroup.GET("/rentals", api.MyRentalsHandler(ldg, redisClient))         // My rentals endpoint
	costumeGroup.POST("/:id/rent", api.RentCostumeHandler(ldg, redisClient))     // Rent endpoint
	costumeGroup.POST("/:id/return", api.InitiateReturnHandler(ldg, redisClient)) // Return-request endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.POST("/costumes", api.CreateCostumeHandler(cat, redisClient))           // Create costume endpoint
	adminGroup.POST("/costumes/:id/stock", api.AddStockHandler(cat, redisClient))      // Add stock endpoint
	adminGroup.GET("/costumes/:id/stock", api.StockSnapshotHandler(ldg))               // Stock snapshot endpoint
	adminGroup.DELETE("/costumes/:id", api.DeleteCostumeHandler(cat, redisClient))     // Delete costume endpoint
	adminGroup.GET("/rentals", api.ListAllRentalsHandler(ldg))                         // Active rentals dashboard
	adminGroup.GET("/returns", api.ListPendingReturnsHandler(ldg, redisClient))        // Return review queue
	adminGroup.POST("/returns/:id/resolve", api.ResolveReturnHandler(ldg, redisClient)) // Resolve return endpoint
	adminGroup.GET("/users", api.ListUsersHandler(db))                                 // List users endpoint
	adminGroup.PUT("/users/:id/role", api.UpdateUserRoleHandler(db))                   // Role update endpoint
	adminGroup.DELETE("/users/:id", api.DeleteUserHandler(db, redisClient))            // Delete user endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
