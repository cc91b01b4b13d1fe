// Package compliance checks note content against insurer documentation
// standards and DSM-5 alignment. Checks are read-only.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"carenote/internal/clinical"
	"carenote/internal/metrics"
	"carenote/internal/richtext"
)

var ErrUnknownStandard = errors.New("unknown compliance standard")

type Kind string

const (
	KindInsurer Kind = "insurer"
	KindDSM     Kind = "dsm"
)

type Standard struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	MinWords int    `json:"min_words"`
}

var Standards = []Standard{
	{ID: "bcbs", Name: "Blue Cross Blue Shield", Kind: KindInsurer, MinWords: 15},
	{ID: "uhc", Name: "United Healthcare", Kind: KindInsurer, MinWords: 20},
	{ID: "aetna", Name: "Aetna", Kind: KindInsurer, MinWords: 15},
	{ID: "dsm-5", Name: "DSM-5", Kind: KindDSM},
}

func LookupStandard(id string) (Standard, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, s := range Standards {
		if s.ID == id {
			return s, true
		}
	}
	return Standard{}, false
}

var guidelines = map[clinical.Section]string{
	clinical.PresentingProblems:       "Include specific symptoms, duration, and impact on daily functioning. Avoid generalizations.",
	clinical.DiagnosticImpressions:    "Use current DSM criteria. Support diagnosis with specific observed symptoms and reported history.",
	clinical.TreatmentRecommendations: "Ensure recommendations are evidence-based and appropriate for diagnosis. Include frequency and duration.",
}

// Guideline returns the documentation guidance for a section, or "" when the
// section has none.
func Guideline(section clinical.Section) string {
	return guidelines[section]
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

type Request struct {
	Standard string
	Section  clinical.Section
	Content  string
}

type Report struct {
	Standard  Standard         `json:"standard"`
	Section   clinical.Section `json:"section"`
	Guideline string           `json:"guideline,omitempty"`
	Findings  []Finding        `json:"findings"`
	Passed    bool             `json:"passed"`
	CheckedAt time.Time        `json:"checked_at"`
}

var (
	durationRe  = regexp.MustCompile(`(?i)\b(\d+\s*(day|week|month|year)s?|since|for the past|onset)\b`)
	impactRe    = regexp.MustCompile(`(?i)\b(work|school|sleep|daily|function\w*|relationship\w*|social|appetite)\b`)
	frequencyRe = regexp.MustCompile(`(?i)\b(weekly|biweekly|bi-weekly|monthly|daily|per week|times a week|\d+\s*sessions?)\b`)
	lengthRe    = regexp.MustCompile(`(?i)\b\d+\s*(week|month|session)s?\b`)
	codeRe      = regexp.MustCompile(`\b[Ff]\d{2}(\.\d{1,2})?\b|\bDSM(-?5)?\b`)
	criteriaRe  = regexp.MustCompile(`(?i)\b(criteria|criterion|symptom\w*)\b`)
)

type Checker struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewChecker() *Checker {
	return &Checker{Now: time.Now}
}

func (c *Checker) Check(ctx context.Context, req Request) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	std, ok := LookupStandard(req.Standard)
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownStandard, req.Standard)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	text := richtext.PlainText(req.Content)
	r := Report{
		Standard:  std,
		Section:   req.Section,
		Guideline: Guideline(req.Section),
		Findings:  []Finding{},
		CheckedAt: now(),
	}

	if text == "" {
		r.Findings = append(r.Findings, Finding{"content", SeverityError, "Note is empty."})
		return r, nil
	}

	switch std.Kind {
	case KindInsurer:
		r.Findings = append(r.Findings, insurerFindings(std, req.Section, text)...)
	case KindDSM:
		r.Findings = append(r.Findings, dsmFindings(req.Section, text)...)
	}

	r.Passed = true
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			r.Passed = false
			break
		}
	}
	metrics.RecordComplianceCheck(std.ID, r.Passed)
	return r, nil
}

func insurerFindings(std Standard, section clinical.Section, text string) []Finding {
	var out []Finding
	if n := len(strings.Fields(text)); n < std.MinWords {
		out = append(out, Finding{"length", SeverityWarning,
			fmt.Sprintf("%s reviewers expect at least %d words; note has %d.", std.Name, std.MinWords, n)})
	}

	switch section {
	case clinical.PresentingProblems, clinical.PlanAssessment:
		if !durationRe.MatchString(text) {
			out = append(out, Finding{"duration", SeverityError, "State how long symptoms have been present."})
		}
		if !impactRe.MatchString(text) {
			out = append(out, Finding{"functional_impact", SeverityError, "Describe the impact on daily functioning."})
		}
	case clinical.TreatmentRecommendations, clinical.PlanStructure, clinical.PlanIntervention:
		if !frequencyRe.MatchString(text) {
			out = append(out, Finding{"frequency", SeverityError, "Include session frequency."})
		}
		if !lengthRe.MatchString(text) {
			out = append(out, Finding{"treatment_duration", SeverityError, "Include expected treatment duration."})
		}
	case clinical.DiagnosticImpressions:
		if !codeRe.MatchString(text) {
			out = append(out, Finding{"diagnosis_code", SeverityError, "Cite a DSM-5 diagnosis or ICD-10 code."})
		}
	}
	return out
}

func dsmFindings(section clinical.Section, text string) []Finding {
	var out []Finding
	switch section {
	case clinical.DiagnosticImpressions, clinical.PlanAssessment:
		if !codeRe.MatchString(text) {
			out = append(out, Finding{"diagnosis_code", SeverityError, "Cite a DSM-5 diagnosis or ICD-10 code."})
		}
		if !criteriaRe.MatchString(text) {
			out = append(out, Finding{"criteria", SeverityWarning, "Support the diagnosis with observed symptoms or criteria met."})
		}
	default:
		if !criteriaRe.MatchString(text) && !codeRe.MatchString(text) {
			out = append(out, Finding{"criteria", SeverityWarning, "Reference the symptoms or criteria this section addresses."})
		}
	}
	return out
}
