package jobs

import (
	"time"

	"github.com/google/uuid"
)

const TypeIntakeSubmitted = "INTAKE_SUBMITTED"

const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

type Job struct {
	ID uint64 `gorm:"primaryKey"`
	// ProfileID is who the job acts for, if anyone.
	ProfileID *uuid.UUID `gorm:"type:uuid;index"`

	Type    string `gorm:"type:text;not null"`
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"`

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// IntakeSubmitted is the payload of an INTAKE_SUBMITTED job.
type IntakeSubmitted struct {
	IntakeID    uuid.UUID  `json:"intake_id"`
	TherapistID *uuid.UUID `json:"therapist_id,omitempty"`
}
