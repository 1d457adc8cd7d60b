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
	"gorm.io/gorm"                 // GORM ORM library
)

// Request struct for creating a costume
type CreateCostumeRequest struct {
	Name     string  `json:"name" binding:"required"`      // Costume name
	ImageURL string  `json:"image_url" binding:"required"` // Link to the photo
	Size     *string `json:"size"`                         // Optional size label
	Quantity int     `json:"quantity" binding:"gte=0"`     // Provisioned units
}

// Request struct for provisioning additional stock
type AddStockRequest struct {
	Count int `json:"count" binding:"required,gt=0"` // Units to add
}

// Request struct for resolving a return
type ResolveReturnRequest struct {
	Approve *bool `json:"approve" binding:"required"` // Approve or reject
}

// Request struct for changing a user's role
type UpdateRoleRequest struct {
	Role domain.Role `json:"role" binding:"required"` // New role
}

// ReturnReviewResponse represents one pending return for the review queue
type ReturnReviewResponse struct {
	RequestID   int64     `json:"request_id"`   // Return request id
	UserID      int64     `json:"user_id"`      // Returning user
	FullName    string    `json:"full_name"`    // User display name
	Phone       string    `json:"phone"`        // User contact
	CostumeID   int64     `json:"costume_id"`   // Costume being returned
	Costume     string    `json:"costume"`      // Costume name
	Size        *string   `json:"size"`         // Costume size, if any
	RequestedAt time.Time `json:"requested_at"` // When the return was initiated
}

// RentalAdminResponse represents one active rental for the dashboard
type RentalAdminResponse struct {
	RentalID  int64     `json:"rental_id"`  // Rental row id
	UserID    int64     `json:"user_id"`    // Holder id
	FullName  string    `json:"full_name"`  // Holder display name
	Phone     string    `json:"phone"`      // Holder contact
	CostumeID int64     `json:"costume_id"` // Rented costume id
	Costume   string    `json:"costume"`    // Costume name
	Size      *string   `json:"size"`       // Costume size, if any
	RentedAt  time.Time `json:"rented_at"`  // When the unit was taken
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       int64       `json:"id"`        // User ID
	FullName string      `json:"full_name"` // Full name
	Phone    string      `json:"phone"`     // Phone number
	Role     domain.Role `json:"role"`      // User role
}

// StockSnapshotResponse reports where a costume's units are
type StockSnapshotResponse struct {
	CostumeID int64 `json:"costume_id"` // Costume id
	Quantity  int   `json:"quantity"`   // Units on the shelf
	Rented    int64 `json:"rented"`     // Units currently out
}

// StockSnapshotHandler reports the available and rented counts for one costume
func StockSnapshotHandler(ldg *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		costumeID, ok := costumeIDParam(c) // Parse costume id
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid costume id"})
			return
		}
		quantity, rented, err := ldg.StockSnapshot(c.Request.Context(), costumeID)
		if err != nil {
			if errors.Is(err, ledger.ErrCostumeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Costume not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock"})
			return
		}
		c.JSON(http.StatusOK, StockSnapshotResponse{
			CostumeID: costumeID, // Costume id
			Quantity:  quantity,  // Units on the shelf
			Rented:    rented,    // Units currently out
		})
	}
}

// CreateCostumeHandler adds a new costume to the catalog
func CreateCostumeHandler(cat *catalog.Catalog, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCostumeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		costume, err := cat.Create(c.Request.Context(), req.Name, req.ImageURL, req.Size, req.Quantity)
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"name":  req.Name,    // Costume name
				"error": err.Error(), // Error message
			}).Error("Failed to create costume") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create costume"})
			return
		}
		// Invalidate the costume listing cache
		_ = utils.DeleteCache(context.Background(), rdb, utils.CostumeListCacheKey)
		// Return the created costume
		c.JSON(http.StatusCreated, gin.H{"message": "Costume created", "costume": costume})
	}
}

// AddStockHandler provisions additional units for a costume
func AddStockHandler(cat *catalog.Catalog, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		costumeID, ok := costumeIDParam(c) // Parse costume id
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid costume id"})
			return
		}
		var req AddStockRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		costume, err := cat.AddStock(c.Request.Context(), costumeID, req.Count)
		if err != nil {
			if errors.Is(err, catalog.ErrCostumeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Costume not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add stock"})
			return
		}
		// Log the provisioning
		logrus.WithFields(logrus.Fields{
			"costume_id": costumeID,        // Costume
			"count":      req.Count,        // Units added
			"quantity":   costume.Quantity, // Quantity after the change
			"type":       "add_stock",      // Operation type
		}).Info("Stock added") // Log success
		// Invalidate the costume listing cache
		_ = utils.DeleteCache(context.Background(), rdb, utils.CostumeListCacheKey)
		// Return the updated costume
		c.JSON(http.StatusOK, gin.H{"message": "Stock added", "costume": costume})
	}
}

// DeleteCostumeHandler removes a costume that has no active rentals
func DeleteCostumeHandler(cat *catalog.Catalog, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		costumeID, ok := costumeIDParam(c) // Parse costume id
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid costume id"})
			return
		}
		if err := cat.Delete(c.Request.Context(), costumeID); err != nil {
			switch {
			case errors.Is(err, catalog.ErrCostumeInUse):
				// Units are still out; refuse the deletion
				c.JSON(http.StatusConflict, gin.H{"error": "Costume has active rentals"})
			case errors.Is(err, catalog.ErrCostumeNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Costume not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete costume"})
			}
			return
		}
		// Invalidate the costume listing cache
		_ = utils.DeleteCache(context.Background(), rdb, utils.CostumeListCacheKey)
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Costume deleted"})
	}
}

// ListAllRentalsHandler returns every active rental for the dashboard
func ListAllRentalsHandler(ldg *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rentals, err := ldg.ListAllActiveRentals(c.Request.Context()) // Fetch from DB
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rentals"})
			return
		}
		// Map rentals to response format
		resp := make([]RentalAdminResponse, len(rentals))
		for i, r := range rentals {
			resp[i] = RentalAdminResponse{
				RentalID:  r.ID,            // Rental row id
				UserID:    r.UserID,        // Holder id
				FullName:  r.User.FullName, // Holder display name
				Phone:     r.User.Phone,    // Holder contact
				CostumeID: r.CostumeID,     // Rented costume id
				Costume:   r.Costume.Name,  // Costume name
				Size:      r.Costume.Size,  // Costume size
				RentedAt:  r.CreatedAt,     // When the unit was taken
			}
		}
		c.JSON(http.StatusOK, gin.H{"rentals": resp})
	}
}

// ListPendingReturnsHandler returns the review queue in FIFO order
func ListPendingReturnsHandler(ldg *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		var cached []ReturnReviewResponse
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, utils.PendingReturnsCacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"returns": cached, "cached": true})
			return
		}
		requests, err := ldg.ListPending(c.Request.Context()) // Fetch from DB
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch return requests"})
			return
		}
		// Map requests to response format
		resp := make([]ReturnReviewResponse, len(requests))
		for i, r := range requests {
			resp[i] = ReturnReviewResponse{
				RequestID:   r.ID,            // Return request id
				UserID:      r.UserID,        // Returning user
				FullName:    r.User.FullName, // User display name
				Phone:       r.User.Phone,    // User contact
				CostumeID:   r.CostumeID,     // Costume being returned
				Costume:     r.Costume.Name,  // Costume name
				Size:        r.Costume.Size,  // Costume size
				RequestedAt: r.CreatedAt,     // When the return was initiated
			}
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, utils.PendingReturnsCacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"returns": resp, "cached": false})
	}
}

// ResolveReturnHandler approves or rejects a pending return
func ResolveReturnHandler(ldg *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, err := strconv.ParseInt(c.Param("id"), 10, 64) // Parse request id
		if err != nil || requestID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
			return
		}
		var req ResolveReturnRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.Approve == nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		request, err := ldg.ResolveReturn(c.Request.Context(), requestID, *req.Approve) // Ledger operation
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"request_id": requestID,   // Return request
				"error":      err.Error(), // Error message
			}).Error("Return resolution failed") // Log failure
			switch {
			case errors.Is(err, ledger.ErrRequestNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Return request not found"})
			case errors.Is(err, ledger.ErrAlreadyResolved):
				c.JSON(http.StatusConflict, gin.H{"error": "Return request already resolved"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Return resolution failed"})
			}
			return
		}
		// Log the resolution
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,                       // Return request
			"user_id":    request.UserID,                  // Returning user
			"costume_id": request.CostumeID,               // Costume
			"status":     request.Status,                  // Final status
			"type":       "resolve_return",                // Operation type
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Return resolved") // Log success
		// A rejected unit is tracked in neither quantity nor an active rental;
		// it needs a manual restock after inspection
		if request.Status == domain.ReturnRejected {
			logrus.WithFields(logrus.Fields{
				"request_id": requestID,         // Return request
				"costume_id": request.CostumeID, // Costume
			}).Warn("Return rejected; unit requires manual restock")
		}
		// Invalidate the review queue, the listing and the user's rentals cache
		ctx := context.Background()
		_ = utils.DeleteCache(ctx, rdb, utils.PendingReturnsCacheKey)
		_ = utils.DeleteCache(ctx, rdb, utils.CostumeListCacheKey)
		_ = utils.DeleteCache(ctx, rdb, utils.RentalsCacheKey(request.UserID))
		// Return the resolved request
		c.JSON(http.StatusOK, gin.H{"message": "Return resolved", "status": request.Status})
	}
}

// ListUsersHandler returns all users with pagination
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		// Fetch total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Apply offset and limit for pagination
		if err := db.Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		// Prepare response data
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:       u.ID,       // User ID
				FullName: u.FullName, // Full name
				Phone:    u.Phone,    // Phone number
				Role:     u.Role,     // User role
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
		})
	}
}

// UpdateUserRoleHandler changes a user's role; this is the only path that
// mutates roles
func UpdateUserRoleHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("id"), 10, 64) // Parse user id
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req UpdateRoleRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Only the two known roles are accepted
		if req.Role != domain.RoleAdmin && req.Role != domain.RoleUser {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
			return
		}
		// Guarded update on the user row
		res := db.Model(&domain.User{}).Where("id = ?", userID).Update("role", req.Role)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Log the role change
		logrus.WithFields(logrus.Fields{
			"user_id": userID,        // Affected user
			"role":    req.Role,      // New role
			"type":    "update_role", // Operation type
		}).Info("Role updated") // Log success
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
	}
}

// DeleteUserHandler removes a user; rentals cascade with the row
func DeleteUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("id"), 10, 64) // Parse user id
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		res := db.Delete(&domain.User{}, userID) // Delete the user row
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Log the deletion
		logrus.WithFields(logrus.Fields{
			"user_id": userID,        // Deleted user
			"type":    "delete_user", // Operation type
		}).Info("User deleted") // Log success
		// Invalidate the user's rentals cache
		_ = utils.DeleteCache(context.Background(), rdb, utils.RentalsCacheKey(userID))
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}
