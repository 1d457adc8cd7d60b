package catalog

import (
	"context" // Context propagated into store operations
	"errors"  // Sentinel errors
	"strings" // Search-term normalization

	"costume_rental/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Errors reported by catalog operations
var (
	ErrCostumeNotFound = errors.New("costume not found") // Lookup of an unknown costume
	ErrCostumeInUse    = errors.New("costume has active rentals") // Delete refused while units are out
)

// Catalog is the read-mostly directory over the costume inventory. It never
// touches quantity on behalf of rent/return flows; those go through the ledger.
type Catalog struct {
	db *gorm.DB // Persistent store handle, injected explicitly
}

// New creates a Catalog backed by the given store handle
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Create adds a new costume with its initially provisioned quantity
func (c *Catalog) Create(ctx context.Context, name, imageURL string, size *string, quantity int) (*domain.Costume, error) {
	costume := domain.Costume{
		Name:     name,     // Costume name
		ImageURL: imageURL, // Link to the photo
		Size:     size,     // Optional size label
		Quantity: quantity, // Provisioned units
	}
	if err := c.db.WithContext(ctx).Create(&costume).Error; err != nil {
		return nil, err
	}
	return &costume, nil
}

// Get fetches one costume by id
func (c *Catalog) Get(ctx context.Context, costumeID int64) (*domain.Costume, error) {
	var costume domain.Costume
	if err := c.db.WithContext(ctx).First(&costume, costumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCostumeNotFound
		}
		return nil, err
	}
	return &costume, nil
}

// List returns the whole catalog, newest first
func (c *Catalog) List(ctx context.Context) ([]domain.Costume, error) {
	var costumes []domain.Costume
	err := c.db.WithContext(ctx).Order("id desc").Find(&costumes).Error
	return costumes, err
}

// Search filters costumes with available units by name or size,
// case-insensitively. Read-only; no invariant concerns.
func (c *Catalog) Search(ctx context.Context, text string) ([]domain.Costume, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
	var costumes []domain.Costume
	err := c.db.WithContext(ctx).
		Where("quantity > 0 AND (LOWER(name) LIKE ? OR LOWER(size) LIKE ?)", pattern, pattern).
		Order("name asc").
		Find(&costumes).Error
	return costumes, err
}

// AddStock provisions n additional units for an existing costume. This is also
// the manual reconciliation path after a rejected return has been inspected.
func (c *Catalog) AddStock(ctx context.Context, costumeID int64, n int) (*domain.Costume, error) {
	var costume domain.Costume
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded increment on the costume row
		res := tx.Model(&domain.Costume{}).
			Where("id = ?", costumeID).
			Update("quantity", gorm.Expr("quantity + ?", n))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCostumeNotFound
		}
		return tx.First(&costume, costumeID).Error
	})
	if err != nil {
		return nil, err
	}
	return &costume, nil
}

// Delete removes a costume from the catalog. Refused while any active rental
// still references it; approved or rejected history rows do not block deletion.
func (c *Catalog) Delete(ctx context.Context, costumeID int64) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		// Count active rentals referencing the costume
		if err := tx.Model(&domain.Rental{}).
			Where("costume_id = ?", costumeID).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrCostumeInUse
		}
		res := tx.Delete(&domain.Costume{}, costumeID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCostumeNotFound
		}
		return nil
	})
}
