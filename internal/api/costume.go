package api

import (
	"context"  // Context for Redis operations
	"errors"   // errors.Is for ledger error mapping
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"costume_rental/internal/catalog" // Costume directory
	"costume_rental/internal/domain"  // Importing domain models
	"costume_rental/internal/ledger"  // Inventory ledger
	"costume_rental/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// currentUserID extracts the authenticated user id set by the JWT middleware
func currentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("userID") // Get userID from context
	if !exists {
		return 0, false
	}
	id, ok := v.(int64) // Stored as int64 by the middleware
	return id, ok
}

// costumeIDParam parses the :id path parameter
func costumeIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RentalResponse represents one active rental for display
type RentalResponse struct {
	RentalID  int64     `json:"rental_id"`  // Rental row id
	CostumeID int64     `json:"costume_id"` // Rented costume id
	Costume   string    `json:"costume"`    // Costume name
	Size      *string   `json:"size"`       // Costume size, if any
	ImageURL  string    `json:"image_url"`  // Costume photo
	RentedAt  time.Time `json:"rented_at"`  // When the unit was taken
}

// ListCostumesHandler returns the whole catalog
func ListCostumesHandler(cat *catalog.Catalog, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		var cached []domain.Costume
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, utils.CostumeListCacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"costumes": cached, "cached": true})
			return
		}
		costumes, err := cat.List(c.Request.Context()) // Fetch from DB
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch costumes"})
			return
		}
		// Cache the listing for future requests
		_ = utils.SetCache(ctx, rdb, utils.CostumeListCacheKey, costumes, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"costumes": costumes, "cached": false})
	}
}

// SearchCostumesHandler filters available costumes by name or size
func SearchCostumesHandler(cat *catalog.Catalog, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")       // Search text
		ctx := context.Background() // Use background context for Redis
		cacheKey := "costumes:search:q=" + query
		var cached []domain.Costume
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"costumes": cached, "cached": true})
			return
		}
		costumes, err := cat.Search(c.Request.Context(), query) // Fetch from DB
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		// Cache the result briefly; stock moves fast around events
		_ = utils.SetCache(ctx, rdb, cacheKey, costumes, 30*time.Second)
		c.JSON(http.StatusOK, gin.H{"costumes": costumes, "cached": false})
	}
}

// RentCostumeHandler takes one unit of a costume for the authenticated user
func RentCostumeHandler(ldg *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		costumeID, ok := costumeIDParam(c) // Parse costume id
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid costume id"})
			return
		}
		rental, err := ldg.Rent(c.Request.Context(), userID, costumeID) // Ledger operation
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,      // Renting user
				"costume_id": costumeID,   // Requested costume
				"error":      err.Error(), // Error message
			}).Error("Rent failed") // Log rent failure
			switch {
			case errors.Is(err, ledger.ErrOutOfStock):
				c.JSON(http.StatusConflict, gin.H{"error": "Costume is out of stock"})
			case errors.Is(err, ledger.ErrCostumeNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Costume not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Rent failed"})
			}
			return
		}
		// Log successful rent
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,                          // Renting user
			"costume_id": costumeID,                       // Rented costume
			"rental_id":  rental.ID,                       // New rental row
			"type":       "rent",                          // Operation type
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Costume rented") // Log rent success
		// Invalidate the listing and rentals caches
		invalidateInventoryCaches(rdb, userID)
		// Return the rental
		c.JSON(http.StatusCreated, gin.H{"message": "Costume rented", "rental_id": rental.ID})
	}
}

// InitiateReturnHandler queues a return of a rented unit for admin review
func InitiateReturnHandler(ldg *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		costumeID, ok := costumeIDParam(c) // Parse costume id
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid costume id"})
			return
		}
		request, err := ldg.InitiateReturn(c.Request.Context(), userID, costumeID) // Ledger operation
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,      // Returning user
				"costume_id": costumeID,   // Costume being returned
				"error":      err.Error(), // Error message
			}).Error("Return request failed") // Log failure
			if errors.Is(err, ledger.ErrNoActiveRental) {
				c.JSON(http.StatusConflict, gin.H{"error": "No active rental for this costume"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Return request failed"})
			return
		}
		// Log successful return initiation
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,                          // Returning user
			"costume_id": costumeID,                       // Costume being returned
			"request_id": request.ID,                      // New return request
			"type":       "initiate_return",               // Operation type
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Return requested") // Log success
		// Invalidate rentals and review-queue caches; quantity is unchanged
		// until approval so the costume listing stays valid
		ctx := context.Background()
		_ = utils.DeleteCache(ctx, rdb, utils.RentalsCacheKey(userID))
		_ = utils.DeleteCache(ctx, rdb, utils.PendingReturnsCacheKey)
		// Return the pending request
		c.JSON(http.StatusCreated, gin.H{"message": "Return requested", "request_id": request.ID, "status": request.Status})
	}
}

// MyRentalsHandler returns the authenticated user's active rentals
func MyRentalsHandler(ldg *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background() // Use background context for Redis
		cacheKey := utils.RentalsCacheKey(userID)
		var cached []RentalResponse
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"rentals": cached, "cached": true})
			return
		}
		rentals, err := ldg.ListActiveRentalsForUser(c.Request.Context(), userID) // Fetch from DB
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rentals"})
			return
		}
		// Map rentals to response format
		resp := make([]RentalResponse, len(rentals))
		for i, r := range rentals {
			resp[i] = RentalResponse{
				RentalID:  r.ID,               // Rental row id
				CostumeID: r.CostumeID,        // Rented costume id
				Costume:   r.Costume.Name,     // Costume name
				Size:      r.Costume.Size,     // Costume size
				ImageURL:  r.Costume.ImageURL, // Costume photo
				RentedAt:  r.CreatedAt,        // When the unit was taken
			}
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"rentals": resp, "cached": false})
	}
}

// invalidateInventoryCaches drops the caches a stock movement makes stale.
// Search entries are keyed per query and ride out their short TTL instead.
func invalidateInventoryCaches(rdb *redis.Client, userID int64) {
	ctx := context.Background()                                 // Context for Redis operations
	_ = utils.DeleteCache(ctx, rdb, utils.CostumeListCacheKey)  // Listing shows quantities
	_ = utils.DeleteCache(ctx, rdb, utils.RentalsCacheKey(userID)) // User's rentals changed
}
