// Package plan persists treatment plans as an append-only event log with a
// projection holding the current step and serialized section drafts.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/note"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db, Now: time.Now}
}

type CreateInput struct {
	TherapistID uuid.UUID
	ClientID    *uuid.UUID
	Title       string
	AgeGroup    clinical.AgeGroup
	Modality    clinical.Modality
	IdemKey     *string
}

type SaveInput struct {
	PlanID    uuid.UUID
	ProfileID uuid.UUID
	Step      int
	Sections  map[clinical.Section]note.Snapshot
	IdemKey   *string
}

// DecodeSections decodes the projection's serialized drafts.
func (p PlanProjection) DecodeSections() (map[clinical.Section]note.Snapshot, error) {
	out := map[clinical.Section]note.Snapshot{}
	if len(p.Sections) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(p.Sections, &out); err != nil {
		return nil, fmt.Errorf("decode plan sections: %w", err)
	}
	return out, nil
}

// CanAccess reports whether the principal owns or participates in the plan.
func (p PlanProjection) CanAccess(pr auth.Principal) bool {
	switch pr.Role {
	case clinical.RoleTherapist:
		return p.TherapistID == pr.ProfileID
	case clinical.RoleClient:
		return p.ClientID != nil && *p.ClientID == pr.ProfileID
	}
	return false
}

func (s *Service) Create(ctx context.Context, in CreateInput) (uuid.UUID, error) {
	ag, err := clinical.ParseAgeGroup(string(in.AgeGroup))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: age group: %v", ErrInvalidInput, err)
	}
	m, err := clinical.ParseModality(string(in.Modality))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: modality: %v", ErrInvalidInput, err)
	}
	in.AgeGroup, in.Modality = ag, m

	planID := uuid.New()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IdemKey != nil {
			var prior PlanEvent
			err := tx.Where("profile_id=? AND idempotency_key=? AND type=?", in.TherapistID, *in.IdemKey, EventCreated).
				First(&prior).Error
			if err == nil {
				planID = prior.PlanID
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		p := TreatmentPlan{ID: planID, TherapistID: in.TherapistID, ClientID: in.ClientID, CreatedAt: s.Now()}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}

		ev, err := s.insertEvent(tx, planID, in.TherapistID, EventCreated, map[string]any{
			"title":     in.Title,
			"age_group": in.AgeGroup,
			"modality":  in.Modality,
		}, in.IdemKey)
		if err != nil {
			return err
		}

		return tx.Create(&PlanProjection{
			PlanID:         planID,
			TherapistID:    in.TherapistID,
			ClientID:       in.ClientID,
			Title:          in.Title,
			AgeGroup:       in.AgeGroup,
			Modality:       in.Modality,
			Step:           1,
			Sections:       json.RawMessage(`{}`),
			DiagnosisCodes: pq.StringArray{},
			Version:        ev.ID,
			UpdatedAt:      s.Now(),
		}).Error
	})
	return planID, err
}

// SaveSnapshot records the open session's drafts and step. A retried save
// carrying an already used idempotency key returns the current version
// without appending.
func (s *Service) SaveSnapshot(ctx context.Context, in SaveInput) (uint64, error) {
	if in.Step < 1 {
		return 0, fmt.Errorf("%w: step %d", ErrInvalidInput, in.Step)
	}
	sections, err := json.Marshal(in.Sections)
	if err != nil {
		return 0, fmt.Errorf("encode plan sections: %w", err)
	}

	var version uint64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p PlanProjection
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("plan_id=?", in.PlanID).
			First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.TherapistID != in.ProfileID && (p.ClientID == nil || *p.ClientID != in.ProfileID) {
			return ErrForbidden
		}

		if in.IdemKey != nil {
			var n int64
			if err := tx.Model(&PlanEvent{}).
				Where("profile_id=? AND idempotency_key=?", in.ProfileID, *in.IdemKey).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				version = p.Version
				return nil
			}
		}

		contents := make([]string, 0, len(in.Sections))
		for _, snap := range in.Sections {
			contents = append(contents, snap.Content)
		}

		if p.Step != in.Step {
			if _, err := s.insertEvent(tx, in.PlanID, in.ProfileID, EventStepChanged, map[string]any{
				"from": p.Step,
				"to":   in.Step,
			}, nil); err != nil {
				return err
			}
		}
		ev, err := s.insertEvent(tx, in.PlanID, in.ProfileID, EventSnapshotSaved, map[string]any{
			"step":     in.Step,
			"sections": json.RawMessage(sections),
		}, in.IdemKey)
		if err != nil {
			return err
		}

		p.Step = in.Step
		p.Sections = sections
		p.DiagnosisCodes = pq.StringArray(ExtractDiagnosisCodes(contents...))
		p.Version = ev.ID
		p.UpdatedAt = s.Now()
		version = p.Version
		return tx.Save(&p).Error
	})
	return version, err
}

func (s *Service) Get(ctx context.Context, planID uuid.UUID) (PlanProjection, error) {
	var p PlanProjection
	err := s.DB.WithContext(ctx).Where("plan_id=?", planID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PlanProjection{}, ErrNotFound
	}
	return p, err
}

func (s *Service) Timeline(ctx context.Context, planID uuid.UUID) ([]PlanEvent, error) {
	var out []PlanEvent
	if err := s.DB.WithContext(ctx).
		Where("plan_id=?", planID).
		Order("id asc").
		Limit(500).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type ListFilter struct {
	Principal auth.Principal
	// DiagnosisCode limits results to plans mentioning the code.
	DiagnosisCode string
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]PlanProjection, error) {
	q := s.DB.WithContext(ctx).Model(&PlanProjection{})
	switch f.Principal.Role {
	case clinical.RoleTherapist:
		q = q.Where("therapist_id = ?", f.Principal.ProfileID)
	case clinical.RoleClient:
		q = q.Where("client_id = ?", f.Principal.ProfileID)
	default:
		return nil, ErrForbidden
	}
	if f.DiagnosisCode != "" {
		q = q.Where("? = any(diagnosis_codes)", f.DiagnosisCode)
	}

	var out []PlanProjection
	if err := q.Order("updated_at desc").Limit(100).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) insertEvent(tx *gorm.DB, planID, profileID uuid.UUID, typ string, payload map[string]any, idem *string) (PlanEvent, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return PlanEvent{}, err
	}
	ev := PlanEvent{
		PlanID:         planID,
		ProfileID:      profileID,
		Type:           typ,
		Payload:        json.RawMessage(b),
		IdempotencyKey: idem,
		CreatedAt:      s.Now(),
	}
	if err := tx.Create(&ev).Error; err != nil {
		return PlanEvent{}, err
	}
	return ev, nil
}
