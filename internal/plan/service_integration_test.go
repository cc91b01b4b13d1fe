//go:build integration

package plan_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/note"
	"carenote/internal/plan"
	"carenote/internal/testhelpers"
)

func newService(t *testing.T) *plan.Service {
	t.Helper()
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "plan_events", "plan_projections", "treatment_plans")
	return plan.NewService(tdb.DB)
}

func TestCreateSaveGetTimeline(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	therapist, client := uuid.New(), uuid.New()

	id, err := svc.Create(ctx, plan.CreateInput{
		TherapistID: therapist, ClientID: &client, Title: "Spring plan",
		AgeGroup: clinical.Adults, Modality: clinical.EMDR,
	})
	require.NoError(t, err)

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Step)
	assert.NotZero(t, p.Version)

	key := "save-1"
	v1, err := svc.SaveSnapshot(ctx, plan.SaveInput{
		PlanID: id, ProfileID: therapist, Step: 2, IdemKey: &key,
		Sections: map[clinical.Section]note.Snapshot{
			clinical.PlanAssessment: {Content: "<p>F43.10 PTSD, chronic</p>"},
		},
	})
	require.NoError(t, err)
	assert.Greater(t, v1, p.Version)

	// a replay with the same key is a no-op
	v2, err := svc.SaveSnapshot(ctx, plan.SaveInput{PlanID: id, ProfileID: therapist, Step: 3, IdemKey: &key})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	p, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Step)
	assert.Equal(t, []string{"F43.10"}, []string(p.DiagnosisCodes))

	sections, err := p.DecodeSections()
	require.NoError(t, err)
	assert.Equal(t, "<p>F43.10 PTSD, chronic</p>", sections[clinical.PlanAssessment].Content)

	events, err := svc.Timeline(ctx, id)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{plan.EventCreated, plan.EventStepChanged, plan.EventSnapshotSaved}, types)

	byCode, err := svc.List(ctx, plan.ListFilter{
		Principal:     auth.Principal{ProfileID: client, Role: clinical.RoleClient},
		DiagnosisCode: "F43.10",
	})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, id, byCode[0].PlanID)
}

func TestCreateIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	therapist := uuid.New()
	key := "create-1"
	in := plan.CreateInput{TherapistID: therapist, AgeGroup: clinical.Teens, Modality: clinical.AnimalAssisted, IdemKey: &key}

	a, err := svc.Create(ctx, in)
	require.NoError(t, err)
	b, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSaveSnapshotAccess(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, plan.CreateInput{TherapistID: uuid.New(), AgeGroup: clinical.Adults, Modality: clinical.EMDR})
	require.NoError(t, err)

	_, err = svc.SaveSnapshot(ctx, plan.SaveInput{PlanID: id, ProfileID: uuid.New(), Step: 1})
	assert.ErrorIs(t, err, plan.ErrForbidden)

	_, err = svc.SaveSnapshot(ctx, plan.SaveInput{PlanID: uuid.New(), ProfileID: uuid.New(), Step: 1})
	assert.ErrorIs(t, err, plan.ErrNotFound)

	_, err = svc.Create(ctx, plan.CreateInput{TherapistID: uuid.New(), AgeGroup: "seniors", Modality: clinical.EMDR})
	assert.ErrorIs(t, err, plan.ErrInvalidInput)
}
