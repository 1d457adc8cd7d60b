package domain

// Costume Model
type Costume struct {
	ID       int64    `gorm:"primaryKey"`        // Primary key
	Name     string   `gorm:"not null"`          // Costume name
	ImageURL string   `gorm:"not null"`          // Link to the costume photo
	Size     *string  // Size label (M, L, XL), optional
	Quantity int      `gorm:"not null;default:1;check:quantity >= 0"` // Units currently available for rent
	Rentals  []Rental `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // Active rentals of this costume
}
