// Package workflow drives the multi-step treatment plan: which step is
// active and one note draft per section.
package workflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"carenote/internal/clinical"
	"carenote/internal/note"
)

type Step struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Tasks       []string         `json:"tasks"`
	Section     clinical.Section `json:"section"`
	NoteTitle   string           `json:"note_title"`
	SampleNote  string           `json:"sample_note"`
}

// NoteTitleFor words the note heading for the viewer: clients see their
// "Plan" where therapists see "Notes".
func (s Step) NoteTitleFor(role clinical.Role) string {
	if role == clinical.RoleClient && strings.HasSuffix(s.NoteTitle, "Notes") {
		return strings.TrimSuffix(s.NoteTitle, "Notes") + "Plan"
	}
	return s.NoteTitle
}

var TreatmentPlanSteps = []Step{
	{
		Title:       "Initial Assessment",
		Description: "Gather baseline information and identify specific challenges",
		Tasks: []string{
			"Conduct age-appropriate assessment",
			"Identify primary concerns",
			"Establish treatment goals",
		},
		Section:    clinical.PlanAssessment,
		NoteTitle:  "Assessment Notes",
		SampleNote: "Client presents with symptoms of generalized anxiety for the past 6 months, impacting sleep and work performance.",
	},
	{
		Title:       "Treatment Structure",
		Description: "Define the framework and approach",
		Tasks: []string{
			"Determine session frequency",
			"Set milestone markers",
			"Plan parent/guardian involvement",
		},
		Section:    clinical.PlanStructure,
		NoteTitle:  "Treatment Structure Notes",
		SampleNote: "Weekly 50-minute sessions for 12 weeks, with progress review at week 6.",
	},
	{
		Title:       "Intervention Strategies",
		Description: "Select specific techniques and approaches",
		Tasks: []string{
			"Choose age-appropriate exercises",
			"Develop coping strategies",
			"Plan progress tracking methods",
		},
		Section:    clinical.PlanIntervention,
		NoteTitle:  "Intervention Notes",
		SampleNote: "Introduce grounding techniques in session 2; track anxiety ratings weekly using GAD-7.",
	},
}

// Orchestrator holds the active step (1-based) and the drafts. Drafts are
// created on first access and never replaced.
type Orchestrator struct {
	steps    []Step
	newDraft func(clinical.Section) *note.Draft

	mu     sync.Mutex
	step   int
	drafts map[clinical.Section]*note.Draft
}

// New returns an orchestrator positioned at step 1. opts supplies the
// services and client context every draft shares; its Section is set per
// draft.
func New(steps []Step, opts note.Options) *Orchestrator {
	return &Orchestrator{
		steps: steps,
		newDraft: func(s clinical.Section) *note.Draft {
			o := opts
			o.Section = s
			return note.NewDraft(o)
		},
		step:   1,
		drafts: map[clinical.Section]*note.Draft{},
	}
}

func (o *Orchestrator) Steps() []Step { return o.steps }

// Step returns the active 1-based step number.
func (o *Orchestrator) Step() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

// Current returns the active step definition.
func (o *Orchestrator) Current() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.steps[o.step-1]
}

// Advance moves forward one step; at the last step it does nothing.
func (o *Orchestrator) Advance() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step < len(o.steps) {
		o.step++
	}
	return o.step
}

// Back moves back one step; at step 1 it does nothing.
func (o *Orchestrator) Back() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step > 1 {
		o.step--
	}
	return o.step
}

// Draft returns the draft for section, creating an empty one on first use.
func (o *Orchestrator) Draft(section clinical.Section) *note.Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.drafts[section]
	if !ok {
		d = o.newDraft(section)
		o.drafts[section] = d
	}
	return d
}

// Sections lists the sections that have a draft, sorted.
func (o *Orchestrator) Sections() []clinical.Section {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]clinical.Section, 0, len(o.drafts))
	for s := range o.drafts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot serializes every draft for persistence.
func (o *Orchestrator) Snapshot() (int, map[clinical.Section]note.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[clinical.Section]note.Snapshot, len(o.drafts))
	for s, d := range o.drafts {
		out[s] = d.Snapshot()
	}
	return o.step, out
}

// Restore rebuilds an orchestrator from persisted state.
func Restore(steps []Step, opts note.Options, step int, drafts map[clinical.Section]note.Snapshot) (*Orchestrator, error) {
	o := New(steps, opts)
	if step < 1 || step > len(steps) {
		return nil, fmt.Errorf("step %d not in [1, %d]", step, len(steps))
	}
	o.step = step
	for s, snap := range drafts {
		dopts := opts
		dopts.Section = s
		d, err := note.Restore(snap, dopts)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", s, err)
		}
		o.drafts[s] = d
	}
	return o, nil
}

// Close closes every draft so late async results are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, d := range o.drafts {
		d.Close()
	}
}
