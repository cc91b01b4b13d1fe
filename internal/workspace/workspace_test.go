package workspace

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/note"
	"carenote/internal/plan"
)

type fakeStore struct {
	mu    sync.Mutex
	plans map[uuid.UUID]plan.PlanProjection
	gets  int
	saves []plan.SaveInput
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (plan.PlanProjection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if err := ctx.Err(); err != nil {
		return plan.PlanProjection{}, err
	}
	p, ok := f.plans[id]
	if !ok {
		return plan.PlanProjection{}, plan.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) SaveSnapshot(_ context.Context, in plan.SaveInput) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, in)
	return uint64(len(f.saves)), nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*Registry, *fakeStore, *clock, uuid.UUID, auth.Principal, auth.Principal) {
	t.Helper()
	therapist := auth.Principal{ProfileID: uuid.New(), Role: clinical.RoleTherapist}
	client := auth.Principal{ProfileID: uuid.New(), Role: clinical.RoleClient}
	id := uuid.New()

	sections, err := json.Marshal(map[clinical.Section]note.Snapshot{
		clinical.PlanStructure: {
			Content:  "<p>Weekly sessions</p>",
			Versions: []note.Version{{Content: "<p>Weekly sessions</p>", Source: note.SourceManualEdit}},
		},
	})
	require.NoError(t, err)

	store := &fakeStore{plans: map[uuid.UUID]plan.PlanProjection{
		id: {
			PlanID:      id,
			TherapistID: therapist.ProfileID,
			ClientID:    &client.ProfileID,
			AgeGroup:    clinical.Adults,
			Modality:    clinical.EMDR,
			Step:        2,
			Sections:    sections,
		},
	}}
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	r := NewRegistry(store, nil, nil, zap.NewNop())
	r.Now = c.now
	return r, store, c, id, therapist, client
}

func TestOpenRestoresFromStore(t *testing.T) {
	r, store, _, id, therapist, _ := setup(t)

	s, err := r.Open(context.Background(), therapist, id)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workflow.Step())
	assert.Equal(t, "<p>Weekly sessions</p>", s.Workflow.Draft(clinical.PlanStructure).Current())
	assert.Equal(t, clinical.EMDR, s.Modality)

	again, err := r.Open(context.Background(), therapist, id)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, r.Len())
}

func TestOpenConcurrentLoadsOnce(t *testing.T) {
	r, _, _, id, therapist, _ := setup(t)

	var wg sync.WaitGroup
	got := make([]*Session, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Open(context.Background(), therapist, id)
			assert.NoError(t, err)
			got[i] = s
		}(i)
	}
	wg.Wait()
	for _, s := range got[1:] {
		assert.Same(t, got[0], s)
	}
}

func TestOpenLoadSurvivesCallerCancellation(t *testing.T) {
	r, store, _, id, therapist, client := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := r.Open(ctx, therapist, id)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workflow.Step())

	shared, err := r.Open(context.Background(), client, id)
	require.NoError(t, err)
	assert.Same(t, s, shared)
	assert.Equal(t, 1, store.gets)
}

func TestOpenAuthorizes(t *testing.T) {
	r, _, _, id, _, client := setup(t)

	_, err := r.Open(context.Background(), client, id)
	require.NoError(t, err)

	stranger := auth.Principal{ProfileID: uuid.New(), Role: clinical.RoleTherapist}
	_, err = r.Open(context.Background(), stranger, id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = r.Open(context.Background(), stranger, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePersistsSnapshot(t *testing.T) {
	r, store, _, id, therapist, _ := setup(t)
	ctx := context.Background()

	s, err := r.Open(ctx, therapist, id)
	require.NoError(t, err)
	s.Workflow.Advance()
	s.Workflow.Draft(clinical.PlanIntervention).Edit("<p>Bilateral stimulation</p>")

	key := "k1"
	v, err := r.Save(ctx, therapist, id, &key)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	require.Len(t, store.saves, 1)
	in := store.saves[0]
	assert.Equal(t, 3, in.Step)
	assert.Equal(t, therapist.ProfileID, in.ProfileID)
	assert.Equal(t, &key, in.IdemKey)
	assert.Equal(t, "<p>Bilateral stimulation</p>", in.Sections[clinical.PlanIntervention].Content)
	assert.Equal(t, "<p>Weekly sessions</p>", in.Sections[clinical.PlanStructure].Content)
}

func TestCloseDropsSessionAndClosesDrafts(t *testing.T) {
	r, store, _, id, therapist, client := setup(t)
	ctx := context.Background()

	s, err := r.Open(ctx, therapist, id)
	require.NoError(t, err)
	d := s.Workflow.Draft(clinical.PlanStructure)

	stranger := auth.Principal{ProfileID: uuid.New(), Role: clinical.RoleClient}
	assert.ErrorIs(t, r.Close(stranger, id), ErrForbidden)

	require.NoError(t, r.Close(client, id))
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, d.Refine(ctx), note.ErrDraftClosed)

	// closing twice is fine and reopening reloads
	require.NoError(t, r.Close(therapist, id))
	_, err = r.Open(ctx, therapist, id)
	require.NoError(t, err)
	assert.Equal(t, 2, store.gets)
}

func TestSweepClosesIdleSessions(t *testing.T) {
	r, _, c, id, therapist, _ := setup(t)
	ctx := context.Background()

	_, err := r.Open(ctx, therapist, id)
	require.NoError(t, err)

	c.t = c.t.Add(10 * time.Minute)
	assert.Equal(t, 0, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())

	// touching the session keeps it alive
	_, err = r.Open(ctx, therapist, id)
	require.NoError(t, err)
	c.t = c.t.Add(25 * time.Minute)
	assert.Equal(t, 0, r.Sweep(30*time.Minute))

	c.t = c.t.Add(10 * time.Minute)
	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 0, r.Len())
}
