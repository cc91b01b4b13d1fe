package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/forms"
	"carenote/internal/records"
	"carenote/internal/submission"
)

type Submitter interface {
	Submit(ctx context.Context, p *auth.Principal, req submission.Request) (submission.Result, error)
}

type RecordReader interface {
	ListIntakes(ctx context.Context, f records.IntakeFilter) ([]records.IntakeForm, error)
	ListAssessments(ctx context.Context, therapistID uuid.UUID) ([]records.AssessmentListItem, error)
}

type FormHandler struct {
	Submitter Submitter
	Records   RecordReader
	Logger    *zap.Logger
}

type submitReq struct {
	Values forms.Values `json:"values"`
	Status string       `json:"status"`
}

func (h *FormHandler) submit(w http.ResponseWriter, r *http.Request, form forms.FormType, target *uuid.UUID) {
	var req submitReq
	if !decodeJSON(w, r, &req) {
		return
	}
	var status forms.Status
	if s := strings.TrimSpace(req.Status); s != "" {
		var err error
		if status, err = forms.ParseStatus(s); err != nil {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}
	if req.Values == nil {
		req.Values = forms.Values{}
	}

	var p *auth.Principal
	if pr, ok := auth.PrincipalFromContext(r.Context()); ok {
		p = &pr
	}
	res, err := h.Submitter.Submit(r.Context(), p, submission.Request{
		Form:     form,
		Values:   req.Values,
		Status:   status,
		TargetID: target,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	code := http.StatusCreated
	if target != nil {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

func (h *FormHandler) SubmitIntake(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, forms.ClientIntake, nil)
}

// ReviewIntake applies a biopsychosocial review to an intake.
func (h *FormHandler) ReviewIntake(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	h.submit(w, r, forms.Biopsychosocial, &id)
}

func (h *FormHandler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, forms.Assessment, nil)
}

// ListIntakes shows clients their own intakes and therapists every intake,
// optionally filtered by status.
func (h *FormHandler) ListIntakes(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var f records.IntakeFilter
	if p.Role == clinical.RoleClient {
		f.ClientID = &p.ProfileID
	}
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		st, err := forms.ParseStatus(s)
		if err != nil {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		v := string(st)
		f.Status = &v
	}

	items, err := h.Records.ListIntakes(r.Context(), f)
	if err != nil {
		h.Logger.Error("list intakes failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	for i := range items {
		items[i] = items[i].ViewFor(p.Role)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *FormHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	items, err := h.Records.ListAssessments(r.Context(), principal(r).ProfileID)
	if err != nil {
		h.Logger.Error("list assessments failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
