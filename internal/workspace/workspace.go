// Package workspace keeps the treatment plans that are open for editing in
// memory, one workflow per plan, and writes them back on save.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/metrics"
	"carenote/internal/note"
	"carenote/internal/plan"
	"carenote/internal/workflow"
)

var (
	ErrNotFound  = errors.New("plan not found")
	ErrForbidden = errors.New("not a participant of this plan")
)

type PlanStore interface {
	Get(ctx context.Context, planID uuid.UUID) (plan.PlanProjection, error)
	SaveSnapshot(ctx context.Context, in plan.SaveInput) (uint64, error)
}

// Session is one open plan.
type Session struct {
	PlanID   uuid.UUID
	AgeGroup clinical.AgeGroup
	Modality clinical.Modality
	Workflow *workflow.Orchestrator

	proj     plan.PlanProjection
	lastUsed time.Time
}

type Registry struct {
	Store   PlanStore
	Steps   []workflow.Step
	Refiner note.Refiner
	Checker note.ComplianceChecker
	Logger  *zap.Logger
	Now     func() time.Time

	loads    singleflight.Group
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry(store PlanStore, refiner note.Refiner, checker note.ComplianceChecker, logger *zap.Logger) *Registry {
	return &Registry{
		Store:    store,
		Steps:    workflow.TreatmentPlanSteps,
		Refiner:  refiner,
		Checker:  checker,
		Logger:   logger.Named("workspace"),
		Now:      time.Now,
		sessions: map[uuid.UUID]*Session{},
	}
}

// Open returns the plan's session, loading it from the store on first use.
func (r *Registry) Open(ctx context.Context, p auth.Principal, planID uuid.UUID) (*Session, error) {
	if s, err := r.lookup(p, planID); s != nil || err != nil {
		return s, err
	}

	// the load is shared by every waiting caller, so one caller going away
	// must not fail it for the rest
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.loads.Do(planID.String(), func() (any, error) {
		return r.load(loadCtx, planID)
	})
	if err != nil {
		return nil, err
	}
	loaded := v.(*Session)
	if !loaded.proj.CanAccess(p) {
		return nil, ErrForbidden
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[planID]; ok {
		s.lastUsed = r.Now()
		return s, nil
	}
	loaded.lastUsed = r.Now()
	r.sessions[planID] = loaded
	metrics.SetOpenSessions(len(r.sessions))
	r.Logger.Debug("plan opened", zap.String("plan_id", planID.String()))
	return loaded, nil
}

func (r *Registry) lookup(p auth.Principal, planID uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[planID]
	if !ok {
		return nil, nil
	}
	if !s.proj.CanAccess(p) {
		return nil, ErrForbidden
	}
	s.lastUsed = r.Now()
	return s, nil
}

func (r *Registry) load(ctx context.Context, planID uuid.UUID) (*Session, error) {
	proj, err := r.Store.Get(ctx, planID)
	if errors.Is(err, plan.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	sections, err := proj.DecodeSections()
	if err != nil {
		return nil, err
	}

	step := proj.Step
	if step < 1 || step > len(r.Steps) {
		step = 1
	}
	wf, err := workflow.Restore(r.Steps, note.Options{
		AgeGroup: proj.AgeGroup,
		Modality: proj.Modality,
		Refiner:  r.Refiner,
		Checker:  r.Checker,
		Now:      r.Now,
	}, step, sections)
	if err != nil {
		return nil, fmt.Errorf("restore plan %s: %w", planID, err)
	}
	return &Session{
		PlanID:   planID,
		AgeGroup: proj.AgeGroup,
		Modality: proj.Modality,
		Workflow: wf,
		proj:     proj,
	}, nil
}

// Save persists the session's current drafts and step.
func (r *Registry) Save(ctx context.Context, p auth.Principal, planID uuid.UUID, idemKey *string) (uint64, error) {
	s, err := r.Open(ctx, p, planID)
	if err != nil {
		return 0, err
	}
	step, sections := s.Workflow.Snapshot()
	version, err := r.Store.SaveSnapshot(ctx, plan.SaveInput{
		PlanID:    planID,
		ProfileID: p.ProfileID,
		Step:      step,
		Sections:  sections,
		IdemKey:   idemKey,
	})
	switch {
	case errors.Is(err, plan.ErrNotFound):
		return 0, ErrNotFound
	case errors.Is(err, plan.ErrForbidden):
		return 0, ErrForbidden
	}
	return version, err
}

// Close discards the session. In-flight refinements are dropped.
func (r *Registry) Close(p auth.Principal, planID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[planID]
	if !ok {
		return nil
	}
	if !s.proj.CanAccess(p) {
		return ErrForbidden
	}
	r.closeLocked(planID, s)
	return nil
}

func (r *Registry) closeLocked(planID uuid.UUID, s *Session) {
	s.Workflow.Close()
	delete(r.sessions, planID)
	metrics.SetOpenSessions(len(r.sessions))
}

// Sweep closes sessions unused for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.Now().Add(-idle)
	n := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			r.closeLocked(id, s)
			n++
		}
	}
	if n > 0 {
		r.Logger.Info("idle plan sessions closed", zap.Int("count", n))
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
