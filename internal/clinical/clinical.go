// Package clinical holds the closed vocabularies shared by every layer:
// viewer roles, client age groups, therapy modalities and note sections.
package clinical

import (
	"errors"
	"strings"
)

var ErrUnknownValue = errors.New("unknown value")

type Role string

const (
	RoleClient    Role = "client"
	RoleTherapist Role = "therapist"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleClient, RoleTherapist:
		return r, nil
	}
	return "", ErrUnknownValue
}

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleTherapist
}

type AgeGroup string

const (
	Children AgeGroup = "children"
	Teens    AgeGroup = "teens"
	Adults   AgeGroup = "adults"
)

var AgeGroups = []AgeGroup{Children, Teens, Adults}

var ageGroupLabels = map[AgeGroup]string{
	Children: "Kids & Young Children (3-12)",
	Teens:    "Teens & Youth (13-17)",
	Adults:   "Adults (18+)",
}

func ParseAgeGroup(s string) (AgeGroup, error) {
	g := AgeGroup(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ageGroupLabels[g]; !ok {
		return "", ErrUnknownValue
	}
	return g, nil
}

func (g AgeGroup) Label() string { return ageGroupLabels[g] }

type Modality string

const (
	EMDR               Modality = "emdr"
	AnimalAssisted     Modality = "animal-assisted"
	FamilyTherapy      Modality = "family-therapy"
	ArtTherapy         Modality = "art-therapy"
	CBT                Modality = "cbt"
	NatureTherapy      Modality = "nature-therapy"
	Psychodynamic      Modality = "psychodynamic"
	PositivePsychology Modality = "positive-psychology"
	Mindfulness        Modality = "mindfulness"
)

// ModalityInfo describes a modality offered when starting a treatment plan.
type ModalityInfo struct {
	Type        Modality `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// Selectable lists the modalities a therapist can pick for a new plan.
var Selectable = []ModalityInfo{
	{EMDR, "EMDR Therapy", "Eye Movement Desensitization and Reprocessing for trauma and anxiety"},
	{AnimalAssisted, "Animal-Assisted Therapy", "Therapeutic interventions assisted by trained animals"},
	{FamilyTherapy, "Family Therapy", "Systemic approach involving family members"},
	{ArtTherapy, "Art Therapy", "Expression and healing through creative processes"},
}

var knownModalities = map[Modality]struct{}{
	EMDR: {}, AnimalAssisted: {}, FamilyTherapy: {}, ArtTherapy: {}, CBT: {},
	NatureTherapy: {}, Psychodynamic: {}, PositivePsychology: {}, Mindfulness: {},
}

func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownModalities[m]; !ok {
		return "", ErrUnknownValue
	}
	return m, nil
}

// Section names a slot within a form or note. Form sections reuse the
// persisted column names; plan sections are the workflow steps.
type Section string

const (
	PresentingProblems       Section = "presenting_problems"
	DiagnosticImpressions    Section = "diagnostic_impressions"
	TreatmentRecommendations Section = "treatment_recommendations"

	PlanAssessment   Section = "assessment"
	PlanStructure    Section = "structure"
	PlanIntervention Section = "intervention"
)

var knownSections = map[Section]struct{}{
	PresentingProblems: {}, DiagnosticImpressions: {}, TreatmentRecommendations: {},
	PlanAssessment: {}, PlanStructure: {}, PlanIntervention: {},
}

// Known reports whether s is one of the named sections. Forms may still use
// arbitrary field names as sections; they simply have no catalog content.
func (s Section) Known() bool {
	_, ok := knownSections[s]
	return ok
}
