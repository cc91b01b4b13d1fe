package records

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"carenote/internal/clinical"
)

// IntakeForm is a row of intake_forms. Every nullable column is a pointer.
type IntakeForm struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AgeGroup           string     `gorm:"type:text;not null" json:"age_group"`
	ClientID           *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	ClientName         *string    `json:"client_name"`
	DateOfBirth        *string    `json:"date_of_birth"`
	Email              *string    `json:"email"`
	Phone              *string    `json:"phone"`
	EmergencyContact   *string    `json:"emergency_contact"`
	EmergencyPhone     *string    `json:"emergency_phone"`
	InsuranceProvider  *string    `json:"insurance_provider"`
	InsuranceID        *string    `json:"insurance_id"`
	PresentingProblems *string    `json:"presenting_problems"`
	MedicalHistory     *string    `json:"medical_history"`
	FamilyBackground   *string    `json:"family_background"`
	CurrentFunctioning *string    `json:"current_functioning"`
	Status             *string    `gorm:"index" json:"status"`
	TherapistID        *uuid.UUID `gorm:"type:uuid;index" json:"therapist_id"`
	// TherapistNotes is the serialized biopsychosocial review.
	TherapistNotes *string    `json:"therapist_notes"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// ViewFor hides the therapist's review from clients.
func (f IntakeForm) ViewFor(role clinical.Role) IntakeForm {
	if role != clinical.RoleTherapist {
		f.TherapistNotes = nil
	}
	return f
}

// Assessment is a row of assessments.
type Assessment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID          *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"`
	TherapistID       *uuid.UUID      `gorm:"type:uuid;index" json:"therapist_id"`
	SessionDate       *time.Time      `gorm:"index" json:"session_date"`
	SessionType       *string         `json:"session_type"`
	Location          *string         `json:"location"`
	DataSection       *string         `json:"data_section"`
	AssessmentSection *string         `json:"assessment_section"`
	PlanSection       *string         `json:"plan_section"`
	DiagnosisNotes    *string         `json:"diagnosis_notes"`
	TreatmentProgress *string         `json:"treatment_progress"`
	SymptomStatus     *string         `json:"symptom_status"`
	RiskAssessment    *string         `json:"risk_assessment"`
	SafetyPlan        *string         `json:"safety_plan"`
	MentalStatus      json.RawMessage `gorm:"type:jsonb" json:"mental_status"`
	CreatedAt         *time.Time      `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at"`
}

// AssessmentListItem is an assessment joined with its client's name.
type AssessmentListItem struct {
	Assessment
	ClientName *string `json:"client_name"`
}

// IntakeReview is the update applied when a therapist reviews an intake.
type IntakeReview struct {
	PresentingProblems string
	MedicalHistory     string
	FamilyBackground   string
	CurrentFunctioning string
	TherapistNotes     string
	Status             string
	TherapistID        uuid.UUID
}

type IntakeFilter struct {
	ClientID    *uuid.UUID
	TherapistID *uuid.UUID
	Status      *string
}
