package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carenote/internal/clinical"
	"carenote/internal/note"
)

func newPlan() *Orchestrator {
	return New(TreatmentPlanSteps, note.Options{AgeGroup: clinical.Teens, Modality: clinical.EMDR})
}

func TestAdvanceBack_Clamped(t *testing.T) {
	o := newPlan()
	assert.Equal(t, 1, o.Step())

	assert.Equal(t, 1, o.Back(), "back at first step is a no-op")
	assert.Equal(t, 2, o.Advance())
	assert.Equal(t, 3, o.Advance())
	assert.Equal(t, 3, o.Advance(), "advance at last step is a no-op")
	assert.Equal(t, "Intervention Strategies", o.Current().Title)
	assert.Equal(t, 2, o.Back())
	assert.Equal(t, clinical.PlanStructure, o.Current().Section)
}

func TestDraft_OnePerSection(t *testing.T) {
	o := newPlan()

	a := o.Draft(clinical.PlanAssessment)
	require.NotNil(t, a)
	assert.Same(t, a, o.Draft(clinical.PlanAssessment))

	s := o.Draft(clinical.PlanStructure)
	assert.NotSame(t, a, s)

	a.Edit("assessment text")
	assert.Empty(t, s.Current(), "drafts are not aliased")
	assert.Equal(t, clinical.PlanAssessment, a.Section())

	custom := o.Draft(clinical.Section("goals"))
	assert.Empty(t, custom.Versions())

	assert.Equal(t, []clinical.Section{clinical.PlanAssessment, "goals", clinical.PlanStructure}, o.Sections())
}

func TestNoteTitleFor(t *testing.T) {
	s := TreatmentPlanSteps[0]
	assert.Equal(t, "Assessment Notes", s.NoteTitleFor(clinical.RoleTherapist))
	assert.Equal(t, "Assessment Plan", s.NoteTitleFor(clinical.RoleClient))
}

func TestSnapshotRestore(t *testing.T) {
	o := newPlan()
	o.Advance()
	o.Draft(clinical.PlanAssessment).Edit("A1")
	o.Draft(clinical.PlanAssessment).Edit("A2")
	o.Draft(clinical.PlanStructure).Edit("S1")

	step, snaps := o.Snapshot()
	assert.Equal(t, 2, step)
	require.Len(t, snaps, 2)

	r, err := Restore(TreatmentPlanSteps, note.Options{}, step, snaps)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Step())
	assert.Equal(t, "A2", r.Draft(clinical.PlanAssessment).Current())
	assert.Len(t, r.Draft(clinical.PlanAssessment).Versions(), 2)
	assert.Equal(t, "S1", r.Draft(clinical.PlanStructure).Current())
	assert.Equal(t, clinical.PlanStructure, r.Draft(clinical.PlanStructure).Section())

	_, err = Restore(TreatmentPlanSteps, note.Options{}, 4, nil)
	assert.Error(t, err)
}

func TestClose_ClosesDrafts(t *testing.T) {
	o := newPlan()
	d := o.Draft(clinical.PlanAssessment)
	o.Close()
	assert.ErrorIs(t, d.Edit("late"), note.ErrDraftClosed)
	assert.ErrorIs(t, d.Revert(0), note.ErrDraftClosed)
	_, err := d.CheckCompliance(t.Context(), "bcbs")
	assert.ErrorIs(t, err, note.ErrDraftClosed)
}
