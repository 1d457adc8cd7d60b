package domain

import "time"

// ReturnStatus of a return request
type ReturnStatus string

// Return request lifecycle: pending until an administrator resolves it;
// approved and rejected are terminal.
const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

// ReturnRequest Model: a pending claim that a rented unit is being given back,
// subject to administrative approval.
type ReturnRequest struct {
	ID        int64        `gorm:"primaryKey"` // Primary key
	UserID    int64        `gorm:"index;not null"` // Foreign key to User
	CostumeID int64        `gorm:"index;not null"` // Foreign key to Costume
	Status    ReturnStatus `gorm:"default:pending;index"` // pending, approved or rejected
	CreatedAt time.Time    // Timestamp of request creation
	User      User         `gorm:"constraint:OnDelete:CASCADE;" json:"-"` // Requesting user
	Costume   Costume      `gorm:"constraint:OnDelete:CASCADE;" json:"-"` // Costume being returned
}
