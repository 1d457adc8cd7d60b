package catalog_test

import (
	"context"
	"testing"

	"costume_rental/internal/catalog"
	"costume_rental/internal/domain"
	"costume_rental/internal/ledger"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

func strptr(s string) *string { return &s }

func TestCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.New(db)
	ctx := context.Background()

	created, err := cat.Create(ctx, "Pirate costume", "https://img.example/pirate.jpeg", strptr("M"), 2)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := cat.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Pirate costume", got.Name)
	require.Equal(t, 2, got.Quantity)

	_, err = cat.Get(ctx, 9999)
	require.ErrorIs(t, err, catalog.ErrCostumeNotFound)
}

func TestSearchMatchesNameAndSize(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.New(db)
	ctx := context.Background()

	_, err := cat.Create(ctx, "Pirate costume", "https://img.example/pirate.jpeg", strptr("M"), 2)
	require.NoError(t, err)
	_, err = cat.Create(ctx, "Cowboy costume", "https://img.example/cowboy.jpeg", strptr("XL"), 1)
	require.NoError(t, err)

	// Case-insensitive match on the name
	found, err := cat.Search(ctx, "PIRATE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Pirate costume", found[0].Name)

	// Match on the size label
	found, err = cat.Search(ctx, "xl")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Cowboy costume", found[0].Name)

	// Empty query lists everything in stock
	found, err = cat.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestSearchExcludesDepleted(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.New(db)
	ctx := context.Background()

	_, err := cat.Create(ctx, "Zorro costume", "https://img.example/zorro.jpeg", strptr("M"), 0)
	require.NoError(t, err)

	found, err := cat.Search(ctx, "zorro")
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestAddStock(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.New(db)
	ctx := context.Background()

	created, err := cat.Create(ctx, "Viking costume", "https://img.example/viking.jpeg", strptr("L"), 1)
	require.NoError(t, err)

	updated, err := cat.AddStock(ctx, created.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 4, updated.Quantity)

	_, err = cat.AddStock(ctx, 9999, 1)
	require.ErrorIs(t, err, catalog.ErrCostumeNotFound)
}

func TestDeleteBlockedByActiveRentals(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.New(db)
	ldg := ledger.New(db)
	ctx := context.Background()

	user := &domain.User{FullName: "Alice", Phone: "+10000000001", PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, db.Create(user).Error)
	created, err := cat.Create(ctx, "Joker costume", "https://img.example/joker.jpeg", strptr("M"), 1)
	require.NoError(t, err)

	_, err = ldg.Rent(ctx, user.ID, created.ID)
	require.NoError(t, err)

	// A unit is out: deletion must be refused
	err = cat.Delete(ctx, created.ID)
	require.ErrorIs(t, err, catalog.ErrCostumeInUse)

	// After the unit comes back, deletion goes through
	request, err := ldg.InitiateReturn(ctx, user.ID, created.ID)
	require.NoError(t, err)
	_, err = ldg.ResolveReturn(ctx, request.ID, true)
	require.NoError(t, err)

	require.NoError(t, cat.Delete(ctx, created.ID))
	err = cat.Delete(ctx, created.ID)
	require.ErrorIs(t, err, catalog.ErrCostumeNotFound)
}
