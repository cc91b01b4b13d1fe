package forms

import (
	"fmt"

	"carenote/internal/clinical"
)

var baseIntakeFields = []Field{
	{Name: "presenting_problems", Label: "Presenting Problems", Kind: KindText, Required: true, Message: "Please describe your current concerns"},
	{Name: "medical_history", Label: "Medical History", Kind: KindText, Required: true, Message: "Please provide your medical history"},
	{Name: "family_background", Label: "Family Background", Kind: KindText, Required: true, Message: "Please provide your family background"},
	{Name: "current_functioning", Label: "Current Functioning", Kind: KindText, Required: true, Message: "Please describe your current functioning"},
}

func ageGroupOptions() []string {
	out := make([]string, 0, len(clinical.AgeGroups))
	for _, g := range clinical.AgeGroups {
		out = append(out, string(g))
	}
	return out
}

func fields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var ClientIntakeSchema = Schema{
	Form:  ClientIntake,
	Roles: []clinical.Role{clinical.RoleClient, clinical.RoleTherapist},
	Fields: fields(baseIntakeFields, []Field{
		{Name: "age_group", Label: "Age Group", Kind: KindEnum, Required: true, Options: ageGroupOptions()},
		{Name: "client_name", Label: "Name", Kind: KindText},
		{Name: "date_of_birth", Label: "Date of Birth", Kind: KindText, Rule: "datetime=2006-01-02"},
		{Name: "email", Label: "Email", Kind: KindText, Rule: "email"},
		{Name: "phone", Label: "Phone", Kind: KindText, Rule: "max=32"},
		{Name: "emergency_contact", Label: "Emergency Contact", Kind: KindText},
		{Name: "emergency_phone", Label: "Emergency Phone", Kind: KindText, Rule: "max=32"},
		{Name: "insurance_provider", Label: "Insurance Provider", Kind: KindText},
		{Name: "insurance_id", Label: "Insurance ID", Kind: KindText},
	}),
}

var BiopsychosocialSchema = Schema{
	Form:  Biopsychosocial,
	Roles: []clinical.Role{clinical.RoleTherapist},
	Fields: fields(baseIntakeFields, []Field{
		{Name: "onset_duration", Label: "Onset & Duration", Kind: KindText, Required: true, Message: "Please describe when symptoms began"},
		{Name: "severity", Label: "Severity", Kind: KindEnum, Required: true, Options: []string{"mild", "moderate", "severe"}},
		{Name: "medications", Label: "Medications", Kind: KindText},
		{Name: "sleep_patterns", Label: "Sleep Patterns", Kind: KindText},
		{Name: "appetite_changes", Label: "Appetite Changes", Kind: KindText},
		{Name: "substance_use", Label: "Substance Use", Kind: KindText},
		{Name: "mental_health_history", Label: "Mental Health History", Kind: KindText},
		{Name: "previous_treatment", Label: "Previous Treatment", Kind: KindText},
		{Name: "coping_mechanisms", Label: "Coping Mechanisms", Kind: KindText},
		{Name: "trauma_history", Label: "Trauma History", Kind: KindText},
		{Name: "suicide_risk", Label: "Suicide Risk", Kind: KindBool, Required: true},
		{Name: "support_systems", Label: "Support Systems", Kind: KindText},
		{Name: "education_employment", Label: "Education & Employment", Kind: KindText},
		{Name: "cultural_factors", Label: "Cultural Factors", Kind: KindText},
		{Name: "diagnostic_impressions", Label: "Diagnostic Impressions", Kind: KindText, Required: true, Message: "Please provide diagnostic impressions"},
		{Name: "treatment_recommendations", Label: "Treatment Recommendations", Kind: KindText, Required: true, Message: "Please provide treatment recommendations"},
		{Name: "goals", Label: "Goals", Kind: KindText, Required: true, Message: "Please specify treatment goals"},
	}),
}

// MentalStatusCategories are the checklist groups of a mental status exam.
var MentalStatusCategories = []string{
	"attention", "orientation", "appearance", "behavior", "speech", "affect",
	"mood", "thought_process", "thought_content", "judgment", "memory",
}

var AssessmentSchema = Schema{
	Form:  Assessment,
	Roles: []clinical.Role{clinical.RoleTherapist},
	Fields: []Field{
		{Name: "client_id", Label: "Client", Kind: KindText, Required: true, Rule: "uuid"},
		{Name: "session_type", Label: "Session Type", Kind: KindEnum, Required: true, Options: []string{"in-person", "telehealth"}},
		{Name: "location", Label: "Location", Kind: KindText},
		{Name: "data_section", Label: "Data", Kind: KindText, Required: true},
		{Name: "assessment_section", Label: "Assessment", Kind: KindText, Required: true},
		{Name: "plan_section", Label: "Plan", Kind: KindText, Required: true},
		{Name: "diagnosis_notes", Label: "Diagnosis Notes", Kind: KindText},
		{Name: "treatment_progress", Label: "Treatment Progress", Kind: KindText},
		{Name: "symptom_status", Label: "Symptom Status", Kind: KindEnum, Required: true, Options: []string{"improved", "maintained", "escalated"}},
		{Name: "risk_assessment", Label: "Risk Assessment", Kind: KindText},
		{Name: "safety_plan", Label: "Safety Plan", Kind: KindText},
		{Name: "mental_status", Label: "Mental Status", Kind: KindChecklist, Options: MentalStatusCategories},
	},
}

var schemas = map[FormType]Schema{
	ClientIntake:    ClientIntakeSchema,
	Biopsychosocial: BiopsychosocialSchema,
	Assessment:      AssessmentSchema,
}

func SchemaFor(f FormType) (Schema, error) {
	s, ok := schemas[f]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownForm, f)
	}
	return s, nil
}
