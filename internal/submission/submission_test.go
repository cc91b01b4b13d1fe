package submission

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/forms"
	"carenote/internal/records"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindProfile(ctx context.Context, id uuid.UUID) (auth.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(auth.Profile), args.Error(1)
}

func (m *mockStore) InsertIntake(ctx context.Context, f *records.IntakeForm, submitter uuid.UUID) error {
	args := m.Called(ctx, f, submitter)
	return args.Error(0)
}

func (m *mockStore) ReviewIntake(ctx context.Context, id uuid.UUID, rev records.IntakeReview) (records.IntakeForm, error) {
	args := m.Called(ctx, id, rev)
	return args.Get(0).(records.IntakeForm), args.Error(1)
}

func (m *mockStore) InsertAssessment(ctx context.Context, a *records.Assessment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func intakeValues() forms.Values {
	return forms.Values{
		"presenting_problems": "Patient reports anxiety.",
		"medical_history":     "None",
		"family_background":   "Two siblings",
		"current_functioning": "Working",
		"age_group":           "adults",
		"client_name":         "Jordan",
	}
}

func principal(role clinical.Role) (*auth.Principal, auth.Profile) {
	id := uuid.New()
	return &auth.Principal{ProfileID: id, Role: role}, auth.Profile{ID: id, Role: role}
}

func TestSubmitMissingRequiredFieldNeverCallsStore(t *testing.T) {
	store := &mockStore{}
	a := New(store, zap.NewNop())
	p, _ := principal(clinical.RoleClient)

	v := intakeValues()
	delete(v, "presenting_problems")

	_, err := a.Submit(context.Background(), p, Request{Form: forms.ClientIntake, Values: v})

	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "presenting_problems")
	store.AssertNotCalled(t, "FindProfile", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "InsertIntake", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitInvalidEnumNeverCallsStore(t *testing.T) {
	store := &mockStore{}
	a := New(store, zap.NewNop())
	p, _ := principal(clinical.RoleClient)

	v := intakeValues()
	v["age_group"] = "seniors"
	_, err := a.Submit(context.Background(), p, Request{Form: forms.ClientIntake, Values: v})

	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	store.AssertExpectations(t)
	assert.Empty(t, store.Calls)
}

func TestSubmitWithoutPrincipal(t *testing.T) {
	store := &mockStore{}
	a := New(store, zap.NewNop())

	_, err := a.Submit(context.Background(), nil, Request{Form: forms.ClientIntake, Values: intakeValues()})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, store.Calls)
}

func TestSubmitUnknownProfileIsUnauthenticated(t *testing.T) {
	store := &mockStore{}
	p, _ := principal(clinical.RoleClient)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(auth.Profile{}, records.ErrProfileNotFound)

	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{Form: forms.ClientIntake, Values: intakeValues()})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	store.AssertNotCalled(t, "InsertIntake", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitClientIntake(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleClient)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	store.On("InsertIntake", mock.Anything, mock.AnythingOfType("*records.IntakeForm"), prof.ID).
		Run(func(args mock.Arguments) {
			args.Get(1).(*records.IntakeForm).ID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
		}).
		Return(nil).Once()

	res, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{Form: forms.ClientIntake, Values: intakeValues()})
	require.NoError(t, err)
	assert.Equal(t, forms.StatusSubmitted, res.Status)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", res.ID.String())

	f := store.Calls[1].Arguments.Get(1).(*records.IntakeForm)
	assert.Equal(t, "adults", f.AgeGroup)
	require.NotNil(t, f.ClientID)
	assert.Equal(t, prof.ID, *f.ClientID)
	assert.Nil(t, f.TherapistID)
	assert.Equal(t, "Jordan", *f.ClientName)
	assert.Nil(t, f.Email)
	store.AssertExpectations(t)
}

func TestSubmitClientIntakeCannotChooseReviewStatus(t *testing.T) {
	for _, status := range []forms.Status{forms.StatusReviewed, forms.StatusInProgress} {
		t.Run(string(status), func(t *testing.T) {
			store := &mockStore{}
			p, prof := principal(clinical.RoleClient)
			store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)

			_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{
				Form: forms.ClientIntake, Values: intakeValues(), Status: status,
			})

			var verr *forms.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "must be submitted", verr.Fields["status"])
			store.AssertNotCalled(t, "InsertIntake", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitIntakeByTherapistSetsTherapist(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleTherapist)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	store.On("InsertIntake", mock.Anything, mock.Anything, prof.ID).Return(nil)

	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{
		Form: forms.ClientIntake, Values: intakeValues(), Status: forms.StatusInProgress,
	})
	require.NoError(t, err)

	f := store.Calls[1].Arguments.Get(1).(*records.IntakeForm)
	assert.Equal(t, prof.ID, *f.TherapistID)
	assert.Nil(t, f.ClientID)
	assert.Equal(t, "in_progress", *f.Status)
}

func TestSubmitStoreFailureIsReported(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleClient)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	store.On("InsertIntake", mock.Anything, mock.Anything, prof.ID).Return(errors.New("connection reset")).Once()

	a := New(store, zap.NewNop())
	req := Request{Form: forms.ClientIntake, Values: intakeValues()}
	_, err := a.Submit(context.Background(), p, req)
	assert.ErrorIs(t, err, ErrStoreFailure)

	// the same payload may be retried
	store.On("InsertIntake", mock.Anything, mock.Anything, prof.ID).Return(nil).Once()
	_, err = a.Submit(context.Background(), p, req)
	assert.NoError(t, err)
}

func TestSubmitProfileLookupFailure(t *testing.T) {
	store := &mockStore{}
	p, _ := principal(clinical.RoleClient)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(auth.Profile{}, errors.New("timeout"))

	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{Form: forms.ClientIntake, Values: intakeValues()})
	assert.ErrorIs(t, err, ErrStoreFailure)
}

func reviewValues() forms.Values {
	v := forms.Values{
		"presenting_problems":       "Panic attacks",
		"medical_history":           "Asthma",
		"family_background":         "Parents divorced",
		"current_functioning":       "Missing work",
		"onset_duration":            "6 months",
		"severity":                  "moderate",
		"suicide_risk":              false,
		"diagnostic_impressions":    "F41.0",
		"treatment_recommendations": "Weekly CBT",
		"goals":                     "Fewer attacks",
	}
	return v
}

func TestSubmitBiopsychosocialRequiresTherapist(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleClient)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	target := uuid.New()

	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{
		Form: forms.Biopsychosocial, Values: reviewValues(), TargetID: &target,
	})
	assert.ErrorIs(t, err, ErrForbidden)
	store.AssertNotCalled(t, "ReviewIntake", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitBiopsychosocialRequiresTarget(t *testing.T) {
	store := &mockStore{}
	p, _ := principal(clinical.RoleTherapist)

	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{Form: forms.Biopsychosocial, Values: reviewValues()})
	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "target_id")
	assert.Empty(t, store.Calls)
}

func TestSubmitBiopsychosocialReview(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleTherapist)
	target := uuid.New()
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	store.On("ReviewIntake", mock.Anything, target, mock.Anything).Return(records.IntakeForm{ID: target}, nil)

	res, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{
		Form: forms.Biopsychosocial, Values: reviewValues(), TargetID: &target,
	})
	require.NoError(t, err)
	assert.Equal(t, forms.StatusReviewed, res.Status)

	rev := store.Calls[1].Arguments.Get(2).(records.IntakeReview)
	assert.Equal(t, "Asthma", rev.MedicalHistory)
	assert.Equal(t, "reviewed", rev.Status)
	assert.Equal(t, prof.ID, rev.TherapistID)

	var notes map[string]any
	require.NoError(t, json.Unmarshal([]byte(rev.TherapistNotes), &notes))
	assert.Equal(t, "moderate", notes["severity"])
	assert.Equal(t, false, notes["suicide_risk"])
}

func TestSubmitBiopsychosocialMissingTarget(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleTherapist)
	target := uuid.New()
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	store.On("ReviewIntake", mock.Anything, target, mock.Anything).Return(records.IntakeForm{}, records.ErrNotFound)

	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{
		Form: forms.Biopsychosocial, Values: reviewValues(), TargetID: &target,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAssessment(t *testing.T) {
	store := &mockStore{}
	p, prof := principal(clinical.RoleTherapist)
	store.On("FindProfile", mock.Anything, p.ProfileID).Return(prof, nil)
	store.On("InsertAssessment", mock.Anything, mock.AnythingOfType("*records.Assessment")).Return(nil)

	client := uuid.New()
	_, err := New(store, zap.NewNop()).Submit(context.Background(), p, Request{Form: forms.Assessment, Values: forms.Values{
		"client_id":          client.String(),
		"session_type":       "in-person",
		"data_section":       "D",
		"assessment_section": "A",
		"plan_section":       "P",
		"symptom_status":     "maintained",
		"mental_status":      map[string]any{"mood": []any{"anxious"}},
	}})
	require.NoError(t, err)

	rec := store.Calls[1].Arguments.Get(1).(*records.Assessment)
	assert.Equal(t, client, *rec.ClientID)
	assert.Equal(t, prof.ID, *rec.TherapistID)
	assert.Equal(t, "in-person", *rec.SessionType)
	assert.JSONEq(t, `{"mood":["anxious"]}`, string(rec.MentalStatus))
}

func TestSubmitUnknownForm(t *testing.T) {
	_, err := New(&mockStore{}, zap.NewNop()).Submit(context.Background(), nil, Request{Form: "survey"})
	assert.ErrorIs(t, err, forms.ErrUnknownForm)
}
