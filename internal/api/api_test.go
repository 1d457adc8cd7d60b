package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"costume_rental/internal/api"
	"costume_rental/internal/catalog"
	"costume_rental/internal/domain"
	"costume_rental/internal/ledger"
	"costume_rental/internal/middleware"
	"costume_rental/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

// newTestServer wires the routes the way cmd/server does, against an
// in-memory store and with caching disabled (nil Redis client).
func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Costume{}, &domain.Rental{}, &domain.ReturnRequest{},
	))

	ldg := ledger.New(db)
	cat := catalog.New(db)

	r := gin.New()
	r.POST("/user", api.RegisterHandler(db))
	r.GET("/user", api.LoginHandler(db, testSecret))

	costumeGroup := r.Group("/costumes")
	costumeGroup.Use(middleware.JWTAuthMiddleware(testSecret))
	costumeGroup.GET("", api.ListCostumesHandler(cat, nil))
	costumeGroup.GET("/search", api.SearchCostumesHandler(cat, nil))
	costumeGroup.GET("/rentals", api.MyRentalsHandler(ldg, nil))
	costumeGroup.POST("/:id/rent", api.RentCostumeHandler(ldg, nil))
	costumeGroup.POST("/:id/return", api.InitiateReturnHandler(ldg, nil))

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(testSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.POST("/costumes", api.CreateCostumeHandler(cat, nil))
	adminGroup.POST("/costumes/:id/stock", api.AddStockHandler(cat, nil))
	adminGroup.GET("/costumes/:id/stock", api.StockSnapshotHandler(ldg))
	adminGroup.DELETE("/costumes/:id", api.DeleteCostumeHandler(cat, nil))
	adminGroup.GET("/rentals", api.ListAllRentalsHandler(ldg))
	adminGroup.GET("/returns", api.ListPendingReturnsHandler(ldg, nil))
	adminGroup.POST("/returns/:id/resolve", api.ResolveReturnHandler(ldg, nil))
	adminGroup.GET("/users", api.ListUsersHandler(db))
	adminGroup.PUT("/users/:id/role", api.UpdateUserRoleHandler(db))
	adminGroup.DELETE("/users/:id", api.DeleteUserHandler(db, nil))

	return r, db
}

// doJSON performs a request with an optional bearer token and JSON body
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a user through the API and returns a token
func registerAndLogin(t *testing.T, r *gin.Engine, name, phone string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/user", "", gin.H{
		"full_name": name, "phone": phone, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodGet, "/user", "", gin.H{
		"phone": phone, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestServer(t)

	// Phone must be digits
	w := doJSON(t, r, http.MethodPost, "/user", "", gin.H{
		"full_name": "Alice", "phone": "not-a-phone", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Password too short
	w = doJSON(t, r, http.MethodPost, "/user", "", gin.H{
		"full_name": "Alice", "phone": "+10000000001", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/user", "", gin.H{
		"full_name": "Alice", "phone": "+10000000001", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Phone numbers are unique across users
	w = doJSON(t, r, http.MethodPost, "/user", "", gin.H{
		"full_name": "Someone Else", "phone": "+10000000001", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r, _ := newTestServer(t)
	registerAndLogin(t, r, "Alice", "+10000000001")

	w := doJSON(t, r, http.MethodGet, "/user", "", gin.H{
		"phone": "+10000000001", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenCarriesUserID(t *testing.T) {
	r, db := newTestServer(t)
	token := registerAndLogin(t, r, "Alice", "+10000000001")

	claims, err := utils.ParseJWT(token, testSecret)
	require.NoError(t, err)
	var user domain.User
	require.NoError(t, db.Where("phone = ?", "+10000000001").First(&user).Error)
	require.Equal(t, user.ID, claims.UserID)
}

func TestRentAndReturnFlow(t *testing.T) {
	r, db := newTestServer(t)
	token := registerAndLogin(t, r, "Alice", "+10000000001")

	costume := domain.Costume{Name: "Pirate costume", ImageURL: "https://img.example/pirate.jpeg", Quantity: 1}
	require.NoError(t, db.Create(&costume).Error)

	// Unauthenticated requests bounce at the middleware
	w := doJSON(t, r, http.MethodPost, "/costumes/1/rent", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Rent the only unit
	w = doJSON(t, r, http.MethodPost, "/costumes/1/rent", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// Second attempt hits empty stock
	w = doJSON(t, r, http.MethodPost, "/costumes/1/rent", token, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Unknown costume is a 404, not an out-of-stock lie
	w = doJSON(t, r, http.MethodPost, "/costumes/42/rent", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// The rental shows up under my rentals
	w = doJSON(t, r, http.MethodGet, "/costumes/rentals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rentalsResp struct {
		Rentals []api.RentalResponse `json:"rentals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rentalsResp))
	require.Len(t, rentalsResp.Rentals, 1)
	require.Equal(t, "Pirate costume", rentalsResp.Rentals[0].Costume)

	// Queue the return
	w = doJSON(t, r, http.MethodPost, "/costumes/1/return", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// No rental left to return
	w = doJSON(t, r, http.MethodPost, "/costumes/1/return", token, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminGateAndResolution(t *testing.T) {
	r, db := newTestServer(t)
	token := registerAndLogin(t, r, "Alice", "+10000000001")

	costume := domain.Costume{Name: "Viking costume", ImageURL: "https://img.example/viking.jpeg", Quantity: 1}
	require.NoError(t, db.Create(&costume).Error)

	w := doJSON(t, r, http.MethodPost, "/costumes/1/rent", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/costumes/1/return", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// A regular user cannot reach the review queue
	w = doJSON(t, r, http.MethodGet, "/admin/returns", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Promote the user by administrative action
	require.NoError(t, db.Model(&domain.User{}).
		Where("phone = ?", "+10000000001").
		Update("role", domain.RoleAdmin).Error)

	w = doJSON(t, r, http.MethodGet, "/admin/returns", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queueResp struct {
		Returns []api.ReturnReviewResponse `json:"returns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queueResp))
	require.Len(t, queueResp.Returns, 1)

	// Approve it; the unit goes back into the pool
	requestID := queueResp.Returns[0].RequestID
	w = doJSON(t, r, http.MethodPost, "/admin/returns/1/resolve", token, gin.H{"approve": true})
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.ReturnRequest
	require.NoError(t, db.First(&got, requestID).Error)
	require.Equal(t, domain.ReturnApproved, got.Status)
	var after domain.Costume
	require.NoError(t, db.First(&after, costume.ID).Error)
	require.Equal(t, 1, after.Quantity)

	// Resolving again is refused
	w = doJSON(t, r, http.MethodPost, "/admin/returns/1/resolve", token, gin.H{"approve": true})
	require.Equal(t, http.StatusConflict, w.Code)

	// The stock snapshot shows the unit back on the shelf
	w = doJSON(t, r, http.MethodGet, "/admin/costumes/1/stock", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot api.StockSnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	require.Equal(t, 1, snapshot.Quantity)
	require.Zero(t, snapshot.Rented)

	w = doJSON(t, r, http.MethodGet, "/admin/costumes/42/stock", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	r, db := newTestServer(t)
	token := registerAndLogin(t, r, "Alice", "+10000000001")

	size := "M"
	require.NoError(t, db.Create(&domain.Costume{Name: "Pirate costume", ImageURL: "https://img.example/pirate.jpeg", Size: &size, Quantity: 1}).Error)
	require.NoError(t, db.Create(&domain.Costume{Name: "Zorro costume", ImageURL: "https://img.example/zorro.jpeg", Quantity: 0}).Error)

	w := doJSON(t, r, http.MethodGet, "/costumes/search?q=costume", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Costumes []domain.Costume `json:"costumes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// Only the in-stock costume comes back
	require.Len(t, resp.Costumes, 1)
	require.Equal(t, "Pirate costume", resp.Costumes[0].Name)
}
