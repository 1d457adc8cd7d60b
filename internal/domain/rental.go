package domain

import "time"

// Rental Model: an active possession record linking one user to one held unit.
// The row exists only while the unit is out; returning it (directly or through
// an approved return request) deletes the row.
type Rental struct {
	ID        int64     `gorm:"primaryKey"` // Primary key
	UserID    int64     `gorm:"index;not null"` // Foreign key to User
	CostumeID int64     `gorm:"index;not null"` // Foreign key to Costume
	CreatedAt time.Time // Timestamp of the rent operation
	User      User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"` // Holder
	Costume   Costume   `gorm:"constraint:OnDelete:CASCADE;" json:"-"` // Held costume
}
