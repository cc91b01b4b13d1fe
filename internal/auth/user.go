package auth

import (
	"time"

	"github.com/google/uuid"

	"carenote/internal/clinical"
)

// User is a login account.
type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

// Profile is the practice identity of an account. Forms and plans reference
// profiles, never users.
type Profile struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Role      clinical.Role `gorm:"type:text;not null"`
	UserID    *uint64       `gorm:"uniqueIndex"`
	CreatedAt *time.Time
}

// Principal is the authenticated caller.
type Principal struct {
	ProfileID uuid.UUID
	Role      clinical.Role
}
