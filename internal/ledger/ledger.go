package ledger

import (
	"context" // Context propagated into every store operation
	"errors"  // Sentinel errors and errors.Is
	"fmt"     // Error wrapping

	"costume_rental/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Errors reported by ledger operations. The caller maps them to user-facing
// responses; none are retried here.
var (
	ErrOutOfStock        = errors.New("out of stock")                    // Rent attempted against a depleted costume
	ErrCostumeNotFound   = errors.New("costume not found")               // Rent attempted against a missing costume
	ErrNoActiveRental    = errors.New("no active rental")                // Return attempted without a matching rental
	ErrRequestNotFound   = errors.New("return request not found")        // Resolution of an unknown request
	ErrAlreadyResolved   = errors.New("return request already resolved") // Resolution of a non-pending request
	ErrTransactionFailed = errors.New("transaction failed")              // Underlying store operation could not commit
)

// Ledger mediates every change to a costume's quantity and every creation or
// removal of rental and return-request rows, so that for each costume
// quantity + count(active rentals) stays equal to the provisioned total.
//
// Return policy: a return request does not free the unit. InitiateReturn
// removes the rental without touching quantity; the increment happens only on
// administrative approval, so a unit whose condition has not been verified is
// never rented out again.
type Ledger struct {
	db *gorm.DB // Persistent store handle, injected explicitly
}

// New creates a Ledger backed by the given store handle
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Rent atomically decrements the costume's quantity and creates a rental row.
// The decrement is conditional (quantity > 0 inside the same UPDATE), so two
// racing rents on the last unit resolve with exactly one success.
func (l *Ledger) Rent(ctx context.Context, userID, costumeID int64) (*domain.Rental, error) {
	var rental domain.Rental
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional decrement: only if a unit is still available
		res := tx.Model(&domain.Costume{}).
			Where("id = ? AND quantity > 0", costumeID).
			Update("quantity", gorm.Expr("quantity - 1"))
		if res.Error != nil {
			return res.Error // Rollback on store failure
		}
		// No row updated: costume is missing or depleted
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Costume{}).Where("id = ?", costumeID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrCostumeNotFound
			}
			return ErrOutOfStock
		}
		// Record the possession
		rental = domain.Rental{UserID: userID, CostumeID: costumeID}
		return tx.Create(&rental).Error
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return &rental, nil
}

// InitiateReturn removes the oldest active rental for the (user, costume) pair
// and creates a pending return request. Quantity is left untouched until an
// administrator approves the return.
func (l *Ledger) InitiateReturn(ctx context.Context, userID, costumeID int64) (*domain.ReturnRequest, error) {
	var request domain.ReturnRequest
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rental domain.Rental
		// Find the oldest matching rental
		if err := tx.Where("user_id = ? AND costume_id = ?", userID, costumeID).
			Order("created_at asc").
			First(&rental).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveRental
			}
			return err
		}
		// Remove the rental from the active set. The delete carries the full
		// predicate and its affected count is checked, so two racing returns
		// cannot both consume the same rental and file duplicate requests.
		res := tx.Where("id = ? AND user_id = ? AND costume_id = ?", rental.ID, userID, costumeID).
			Delete(&domain.Rental{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoActiveRental
		}
		// Queue the request for administrative review
		request = domain.ReturnRequest{
			UserID:    userID,
			CostumeID: costumeID,
			Status:    domain.ReturnPending,
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return &request, nil
}

// ResolveReturn transitions a pending return request to approved or rejected.
// Approval puts the unit back into the available pool; rejection leaves it out
// of both pools until an administrator restocks it manually.
func (l *Ledger) ResolveReturn(ctx context.Context, requestID int64, approve bool) (*domain.ReturnRequest, error) {
	var request domain.ReturnRequest
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Fetch the request
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		newStatus := domain.ReturnRejected
		if approve {
			newStatus = domain.ReturnApproved
		}
		// Conditional transition: only a pending request may be resolved.
		// The status guard in the UPDATE stops two racing resolutions from
		// both succeeding and double-incrementing the quantity.
		res := tx.Model(&domain.ReturnRequest{}).
			Where("id = ? AND status = ?", requestID, domain.ReturnPending).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}
		// Deferred increment: the unit becomes available only on approval
		if approve {
			if err := tx.Model(&domain.Costume{}).
				Where("id = ?", request.CostumeID).
				Update("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
				return err
			}
		}
		request.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return &request, nil
}

// ListPending returns all pending return requests in first-in-first-out review
// order, with user and costume loaded for display
func (l *Ledger) ListPending(ctx context.Context) ([]domain.ReturnRequest, error) {
	var requests []domain.ReturnRequest
	err := l.db.WithContext(ctx).
		Preload("User").
		Preload("Costume").
		Where("status = ?", domain.ReturnPending).
		Order("created_at asc").
		Find(&requests).Error
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return requests, nil
}

// ListActiveRentalsForUser returns the user's active rentals with the costume loaded
func (l *Ledger) ListActiveRentalsForUser(ctx context.Context, userID int64) ([]domain.Rental, error) {
	var rentals []domain.Rental
	err := l.db.WithContext(ctx).
		Preload("Costume").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&rentals).Error
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return rentals, nil
}

// ListAllActiveRentals returns every active rental with user and costume
// loaded, for the administrative dashboard
func (l *Ledger) ListAllActiveRentals(ctx context.Context) ([]domain.Rental, error) {
	var rentals []domain.Rental
	err := l.db.WithContext(ctx).
		Preload("User").
		Preload("Costume").
		Order("created_at asc").
		Find(&rentals).Error
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return rentals, nil
}

// StockSnapshot reports the available quantity and the count of active rentals
// for one costume. quantity + rented equals the provisioned total unless a
// rejected return has removed a unit from both pools.
func (l *Ledger) StockSnapshot(ctx context.Context, costumeID int64) (quantity int, rented int64, err error) {
	var costume domain.Costume
	if err = l.db.WithContext(ctx).First(&costume, costumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrCostumeNotFound
		}
		return 0, 0, wrapStoreErr(err)
	}
	if err = l.db.WithContext(ctx).Model(&domain.Rental{}).
		Where("costume_id = ?", costumeID).
		Count(&rented).Error; err != nil {
		return 0, 0, wrapStoreErr(err)
	}
	return costume.Quantity, rented, nil
}

// wrapStoreErr passes ledger sentinels through and wraps anything else as a
// transaction failure
func wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrCostumeNotFound),
		errors.Is(err, ErrNoActiveRental),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrAlreadyResolved):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
}
