package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/note"
	"carenote/internal/plan"
	"carenote/internal/workspace"
)

type PlanStore interface {
	Create(ctx context.Context, in plan.CreateInput) (uuid.UUID, error)
	Get(ctx context.Context, planID uuid.UUID) (plan.PlanProjection, error)
	List(ctx context.Context, f plan.ListFilter) ([]plan.PlanProjection, error)
	Timeline(ctx context.Context, planID uuid.UUID) ([]plan.PlanEvent, error)
}

type Sessions interface {
	Open(ctx context.Context, p auth.Principal, planID uuid.UUID) (*workspace.Session, error)
	Save(ctx context.Context, p auth.Principal, planID uuid.UUID, idemKey *string) (uint64, error)
	Close(p auth.Principal, planID uuid.UUID) error
}

type PlanHandler struct {
	Plans    PlanStore
	Sessions Sessions
	Logger   *zap.Logger
}

type createPlanReq struct {
	Title    string     `json:"title"`
	ClientID *uuid.UUID `json:"client_id"`
	AgeGroup string     `json:"age_group"`
	Modality string     `json:"modality"`
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlanReq
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.Plans.Create(r.Context(), plan.CreateInput{
		TherapistID: principal(r).ProfileID,
		ClientID:    req.ClientID,
		Title:       strings.TrimSpace(req.Title),
		AgeGroup:    clinical.AgeGroup(req.AgeGroup),
		Modality:    clinical.Modality(req.Modality),
		IdemKey:     idempotencyKey(r),
	})
	if err != nil {
		h.Logger.Warn("create plan failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Plans.List(r.Context(), plan.ListFilter{
		Principal:     principal(r),
		DiagnosisCode: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code"))),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	role := principal(r).Role
	for i := range items {
		if items[i], err = items[i].ViewFor(role); err != nil {
			h.Logger.Error("redact plan failed", zap.Error(err))
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type planDTO struct {
	ID       uuid.UUID                      `json:"id"`
	AgeGroup clinical.AgeGroup              `json:"age_group"`
	Modality clinical.Modality              `json:"modality"`
	Step     int                            `json:"step"`
	Steps    []stepDTO                      `json:"steps"`
	Sections map[clinical.Section]note.View `json:"sections"`
}

func sessionDTO(s *workspace.Session, role clinical.Role) planDTO {
	steps := s.Workflow.Steps()
	views := make(map[clinical.Section]note.View, len(steps))
	for _, st := range steps {
		views[st.Section] = s.Workflow.Draft(st.Section).View(role)
	}
	return planDTO{
		ID:       s.PlanID,
		AgeGroup: s.AgeGroup,
		Modality: s.Modality,
		Step:     s.Workflow.Step(),
		Steps:    stepDTOs(steps, role),
		Sections: views,
	}
}

// Get opens the plan for editing and returns its live state.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p := principal(r)
	s, err := h.Sessions.Open(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionDTO(s, p.Role))
}

func (h *PlanHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Sessions.Close(principal(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlanHandler) navigate(w http.ResponseWriter, r *http.Request, forward bool) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	s, err := h.Sessions.Open(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	step := 0
	if forward {
		step = s.Workflow.Advance()
	} else {
		step = s.Workflow.Back()
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": step})
}

func (h *PlanHandler) Advance(w http.ResponseWriter, r *http.Request) { h.navigate(w, r, true) }

func (h *PlanHandler) Back(w http.ResponseWriter, r *http.Request) { h.navigate(w, r, false) }

func (h *PlanHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	version, err := h.Sessions.Save(r.Context(), principal(r), id, idempotencyKey(r))
	if err != nil {
		h.Logger.Warn("save plan failed", zap.String("plan_id", id.String()), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": version})
}

func (h *PlanHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	proj, err := h.Plans.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !proj.CanAccess(principal(r)) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	events, err := h.Plans.Timeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	role := principal(r).Role
	for i := range events {
		if events[i], err = events[i].ViewFor(role); err != nil {
			h.Logger.Error("redact timeline failed", zap.Error(err))
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

// draft resolves the plan session and section named in the URL.
func (h *PlanHandler) draft(w http.ResponseWriter, r *http.Request) (*note.Draft, bool) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return nil, false
	}
	section := clinical.Section(chi.URLParam(r, "section"))
	s, err := h.Sessions.Open(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	for _, st := range s.Workflow.Steps() {
		if st.Section == section {
			return s.Workflow.Draft(section), true
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
	return nil, false
}

type contentReq struct {
	Content string `json:"content"`
}

func (h *PlanHandler) Edit(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req contentReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := d.Edit(req.Content); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View(principal(r).Role))
}

func (h *PlanHandler) Refine(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	if err := d.Refine(r.Context()); err != nil {
		h.Logger.Info("refine failed", zap.String("section", string(d.Section())), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View(principal(r).Role))
}

func (h *PlanHandler) ResetRefine(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	d.ResetRefine()
	writeJSON(w, http.StatusOK, d.View(principal(r).Role))
}

func (h *PlanHandler) Revert(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req struct {
		Index *int `json:"index"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		http.Error(w, "index required", http.StatusBadRequest)
		return
	}
	if err := d.Revert(*req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View(principal(r).Role))
}

func (h *PlanHandler) Comment(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req contentReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p := principal(r)
	added, err := d.AddComment(p.Role, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":    added,
		"comments": d.Comments(),
	})
}

func (h *PlanHandler) PrivateNotes(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var req contentReq
	if !decodeJSON(w, r, &req) {
		return
	}
	p := principal(r)
	if err := d.SetPrivateNotes(p.Role, req.Content); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View(p.Role))
}

func (h *PlanHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	std := strings.TrimSpace(r.URL.Query().Get("standard"))
	if std == "" {
		http.Error(w, "standard required", http.StatusBadRequest)
		return
	}
	report, err := d.CheckCompliance(r.Context(), std)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
