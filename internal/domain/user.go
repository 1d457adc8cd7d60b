package domain

// Role of a user within the rental service
type Role string

// Supported roles
const (
	RoleAdmin Role = "admin" // Can manage inventory and resolve returns
	RoleUser  Role = "user"  // Can rent costumes and request returns
)

// User Model
type User struct {
	ID           int64    `gorm:"primaryKey"`        // Primary key
	FullName     string   `gorm:"not null"`          // Full name
	Phone        string   `gorm:"unique;not null"`   // Phone number (unique)
	PasswordHash string   `gorm:"not null" json:"-"` // Hashed password, never serialized
	Role         Role     `gorm:"default:user"`      // Role: user or admin
	Rentals      []Rental `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // Active rentals held by the user
}
