package plan

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"carenote/internal/clinical"
)

const (
	EventCreated       = "CREATED"
	EventSnapshotSaved = "SNAPSHOT_SAVED"
	EventStepChanged   = "STEP_CHANGED"
)

// TreatmentPlan is a container. State is derived from events and stored in
// the projection.
type TreatmentPlan struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TherapistID uuid.UUID  `gorm:"type:uuid;index;not null"`
	ClientID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time  `gorm:"not null;default:now()"`
}

// PlanEvent is append-only. IdempotencyKey dedupes retried saves per profile.
type PlanEvent struct {
	ID             uint64          `gorm:"primaryKey" json:"id"`
	PlanID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"plan_id"`
	ProfileID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"profile_id"`
	Type           string          `gorm:"not null" json:"type"`
	Payload        json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb" json:"payload"`
	IdempotencyKey *string         `gorm:"index" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

// PlanProjection is the current state for reads and listing.
type PlanProjection struct {
	PlanID      uuid.UUID         `gorm:"type:uuid;primaryKey" json:"plan_id"`
	TherapistID uuid.UUID         `gorm:"type:uuid;index;not null" json:"therapist_id"`
	ClientID    *uuid.UUID        `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Title       string            `gorm:"type:text;not null;default:''" json:"title"`
	AgeGroup    clinical.AgeGroup `gorm:"type:text;not null" json:"age_group"`
	Modality    clinical.Modality `gorm:"type:text;not null" json:"modality"`
	Step        int               `gorm:"not null;default:1" json:"step"`

	// Sections holds the serialized note drafts keyed by section id.
	Sections json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb" json:"sections"`

	DiagnosisCodes pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"diagnosis_codes"`

	Version   uint64    `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `gorm:"index;not null;default:now()" json:"updated_at"`
}
