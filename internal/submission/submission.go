// Package submission validates completed forms and writes each one to the
// store as a single request.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/forms"
	"carenote/internal/metrics"
	"carenote/internal/records"
)

var (
	ErrUnauthenticated = errors.New("no signed-in profile")
	ErrForbidden       = errors.New("role may not submit this form")
	ErrNotFound        = errors.New("submission target not found")
	ErrStoreFailure    = errors.New("store request failed")
)

type Store interface {
	FindProfile(ctx context.Context, id uuid.UUID) (auth.Profile, error)
	InsertIntake(ctx context.Context, f *records.IntakeForm, submitter uuid.UUID) error
	ReviewIntake(ctx context.Context, id uuid.UUID, rev records.IntakeReview) (records.IntakeForm, error)
	InsertAssessment(ctx context.Context, a *records.Assessment) error
}

type Request struct {
	Form   forms.FormType
	Values forms.Values
	// Status defaults per form when empty.
	Status forms.Status
	// TargetID names the intake a biopsychosocial review updates.
	TargetID *uuid.UUID
}

type Result struct {
	ID     uuid.UUID      `json:"id"`
	Form   forms.FormType `json:"form"`
	Status forms.Status   `json:"status,omitempty"`
}

type Adapter struct {
	Store  Store
	Logger *zap.Logger
}

func New(store Store, logger *zap.Logger) *Adapter {
	return &Adapter{Store: store, Logger: logger.Named("submission")}
}

// Submit validates req, resolves the caller's profile and issues exactly one
// store write. Validation failures return *forms.ValidationError before the
// store is touched. A failed write leaves nothing marked submitted and may be
// retried with the same request; retries can create duplicate rows.
func (a *Adapter) Submit(ctx context.Context, principal *auth.Principal, req Request) (Result, error) {
	res, err := a.submit(ctx, principal, req)
	metrics.RecordSubmission(string(req.Form), outcome(err))
	return res, err
}

func (a *Adapter) submit(ctx context.Context, principal *auth.Principal, req Request) (Result, error) {
	schema, err := forms.SchemaFor(req.Form)
	if err != nil {
		return Result{}, err
	}
	if err := schema.Validate(req.Values); err != nil {
		return Result{}, err
	}
	if req.Form == forms.Biopsychosocial && req.TargetID == nil {
		return Result{}, &forms.ValidationError{
			Form:   req.Form,
			Fields: map[string]string{"target_id": "is required"},
		}
	}

	if principal == nil {
		return Result{}, ErrUnauthenticated
	}
	profile, err := a.Store.FindProfile(ctx, principal.ProfileID)
	if errors.Is(err, records.ErrProfileNotFound) {
		return Result{}, ErrUnauthenticated
	}
	if err != nil {
		return Result{}, a.storeFailure(req.Form, "find profile", err)
	}
	if !schema.Allows(profile.Role) {
		return Result{}, ErrForbidden
	}

	switch req.Form {
	case forms.ClientIntake:
		return a.submitIntake(ctx, profile, req)
	case forms.Biopsychosocial:
		return a.submitReview(ctx, profile, req)
	default:
		return a.submitAssessment(ctx, profile, req)
	}
}

func (a *Adapter) submitIntake(ctx context.Context, profile auth.Profile, req Request) (Result, error) {
	status := req.Status
	if status == "" {
		status = forms.StatusSubmitted
	}
	// review states are set by therapists only
	if profile.Role == clinical.RoleClient && status != forms.StatusSubmitted {
		return Result{}, &forms.ValidationError{
			Form:   req.Form,
			Fields: map[string]string{"status": "must be " + string(forms.StatusSubmitted)},
		}
	}
	f := intakeFromValues(req.Values, string(status))
	if profile.Role == clinical.RoleClient {
		f.ClientID = &profile.ID
	} else {
		f.TherapistID = &profile.ID
	}

	if err := a.Store.InsertIntake(ctx, f, profile.ID); err != nil {
		return Result{}, a.storeFailure(req.Form, "insert intake", err)
	}
	return Result{ID: f.ID, Form: req.Form, Status: status}, nil
}

func (a *Adapter) submitReview(ctx context.Context, profile auth.Profile, req Request) (Result, error) {
	status := req.Status
	if status == "" {
		status = forms.StatusReviewed
	}
	notes, err := json.Marshal(req.Values)
	if err != nil {
		return Result{}, fmt.Errorf("encode therapist notes: %w", err)
	}

	v := req.Values
	_, err = a.Store.ReviewIntake(ctx, *req.TargetID, records.IntakeReview{
		PresentingProblems: v.String("presenting_problems"),
		MedicalHistory:     v.String("medical_history"),
		FamilyBackground:   v.String("family_background"),
		CurrentFunctioning: v.String("current_functioning"),
		TherapistNotes:     string(notes),
		Status:             string(status),
		TherapistID:        profile.ID,
	})
	if errors.Is(err, records.ErrNotFound) {
		return Result{}, ErrNotFound
	}
	if err != nil {
		return Result{}, a.storeFailure(req.Form, "review intake", err)
	}
	return Result{ID: *req.TargetID, Form: req.Form, Status: status}, nil
}

func (a *Adapter) submitAssessment(ctx context.Context, profile auth.Profile, req Request) (Result, error) {
	rec, err := assessmentFromValues(req.Values)
	if err != nil {
		return Result{}, err
	}
	rec.TherapistID = &profile.ID

	if err := a.Store.InsertAssessment(ctx, rec); err != nil {
		return Result{}, a.storeFailure(req.Form, "insert assessment", err)
	}
	return Result{ID: rec.ID, Form: req.Form}, nil
}

func (a *Adapter) storeFailure(form forms.FormType, op string, err error) error {
	a.Logger.Error("store request failed", zap.String("form", string(form)), zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrStoreFailure, op, err)
}

func outcome(err error) string {
	var verr *forms.ValidationError
	switch {
	case err == nil:
		return "stored"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden):
		return "denied"
	case errors.Is(err, ErrStoreFailure):
		return "store_error"
	default:
		return "error"
	}
}

func intakeFromValues(v forms.Values, status string) *records.IntakeForm {
	return &records.IntakeForm{
		AgeGroup:           v.String("age_group"),
		ClientName:         v.OptionalString("client_name"),
		DateOfBirth:        v.OptionalString("date_of_birth"),
		Email:              v.OptionalString("email"),
		Phone:              v.OptionalString("phone"),
		EmergencyContact:   v.OptionalString("emergency_contact"),
		EmergencyPhone:     v.OptionalString("emergency_phone"),
		InsuranceProvider:  v.OptionalString("insurance_provider"),
		InsuranceID:        v.OptionalString("insurance_id"),
		PresentingProblems: v.OptionalString("presenting_problems"),
		MedicalHistory:     v.OptionalString("medical_history"),
		FamilyBackground:   v.OptionalString("family_background"),
		CurrentFunctioning: v.OptionalString("current_functioning"),
		Status:             &status,
	}
}

func assessmentFromValues(v forms.Values) (*records.Assessment, error) {
	clientID, err := uuid.Parse(v.String("client_id"))
	if err != nil {
		return nil, &forms.ValidationError{Form: forms.Assessment, Fields: map[string]string{"client_id": "is not a valid uuid"}}
	}
	a := &records.Assessment{
		ClientID:          &clientID,
		SessionType:       v.OptionalString("session_type"),
		Location:          v.OptionalString("location"),
		DataSection:       v.OptionalString("data_section"),
		AssessmentSection: v.OptionalString("assessment_section"),
		PlanSection:       v.OptionalString("plan_section"),
		DiagnosisNotes:    v.OptionalString("diagnosis_notes"),
		TreatmentProgress: v.OptionalString("treatment_progress"),
		SymptomStatus:     v.OptionalString("symptom_status"),
		RiskAssessment:    v.OptionalString("risk_assessment"),
		SafetyPlan:        v.OptionalString("safety_plan"),
	}
	if _, ok := v["mental_status"]; ok {
		b, err := json.Marshal(v.Checklist("mental_status"))
		if err != nil {
			return nil, fmt.Errorf("encode mental status: %w", err)
		}
		a.MentalStatus = b
	}
	return a, nil
}
