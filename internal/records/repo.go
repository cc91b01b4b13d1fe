// Package records is the relational store for intake forms and session
// assessments.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"carenote/internal/auth"
	"carenote/internal/jobs"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrProfileNotFound = errors.New("profile not found")
)

type Repo struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db, Now: time.Now}
}

func (r *Repo) FindProfile(ctx context.Context, id uuid.UUID) (auth.Profile, error) {
	var p auth.Profile
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// InsertIntake stores the intake and queues its review notice atomically.
func (r *Repo) InsertIntake(ctx context.Context, f *IntakeForm, submitter uuid.UUID) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := r.Now()
	f.CreatedAt, f.UpdatedAt = &now, &now

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return err
		}
		j, err := jobs.NewIntakeSubmitted(submitter, jobs.IntakeSubmitted{
			IntakeID:    f.ID,
			TherapistID: f.TherapistID,
		}, now)
		if err != nil {
			return err
		}
		return tx.Create(&j).Error
	})
}

func (r *Repo) ReviewIntake(ctx context.Context, id uuid.UUID, rev IntakeReview) (IntakeForm, error) {
	var out IntakeForm
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&IntakeForm{}).Where("id = ?", id).Updates(map[string]any{
			"presenting_problems": rev.PresentingProblems,
			"medical_history":     rev.MedicalHistory,
			"family_background":   rev.FamilyBackground,
			"current_functioning": rev.CurrentFunctioning,
			"therapist_notes":     rev.TherapistNotes,
			"status":              rev.Status,
			"therapist_id":        rev.TherapistID,
			"updated_at":          r.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	return out, err
}

func (r *Repo) GetIntake(ctx context.Context, id uuid.UUID) (IntakeForm, error) {
	var f IntakeForm
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return IntakeForm{}, ErrNotFound
	}
	return f, err
}

func (r *Repo) ListIntakes(ctx context.Context, f IntakeFilter) ([]IntakeForm, error) {
	q := r.DB.WithContext(ctx).Model(&IntakeForm{})
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.TherapistID != nil {
		q = q.Where("therapist_id = ?", *f.TherapistID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var out []IntakeForm
	if err := q.Order("created_at desc").Limit(200).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) InsertAssessment(ctx context.Context, a *Assessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.Now()
	if a.SessionDate == nil {
		a.SessionDate = &now
	}
	a.CreatedAt, a.UpdatedAt = &now, &now
	return r.DB.WithContext(ctx).Create(a).Error
}

// ListAssessments returns a therapist's assessments, newest session first.
func (r *Repo) ListAssessments(ctx context.Context, therapistID uuid.UUID) ([]AssessmentListItem, error) {
	var out []AssessmentListItem
	err := r.DB.WithContext(ctx).
		Table("assessments").
		Select("assessments.*, intake_forms.client_name").
		Joins("left join intake_forms on intake_forms.id = assessments.client_id").
		Where("assessments.therapist_id = ?", therapistID).
		Order("assessments.session_date desc").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
