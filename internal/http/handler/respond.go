package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carenote/internal/auth"
	"carenote/internal/clinical"
	"carenote/internal/compliance"
	"carenote/internal/forms"
	"carenote/internal/note"
	"carenote/internal/plan"
	"carenote/internal/records"
	"carenote/internal/refine"
	"carenote/internal/submission"
	"carenote/internal/suggest"
	"carenote/internal/workspace"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func idempotencyKey(r *http.Request) *string {
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		return &k
	}
	return nil
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// writeError maps a domain error to its status code.
func writeError(w http.ResponseWriter, err error) {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, submission.ErrUnauthenticated):
		http.Error(w, "please sign in", http.StatusUnauthorized)
	case errors.Is(err, submission.ErrForbidden),
		errors.Is(err, workspace.ErrForbidden),
		errors.Is(err, plan.ErrForbidden),
		errors.Is(err, note.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, submission.ErrNotFound),
		errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, plan.ErrNotFound),
		errors.Is(err, records.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, note.ErrVersionOutOfRange),
		errors.Is(err, compliance.ErrUnknownStandard),
		errors.Is(err, clinical.ErrUnknownValue),
		errors.Is(err, forms.ErrUnknownForm),
		errors.Is(err, plan.ErrInvalidInput),
		errors.Is(err, refine.ErrNothingToRefine):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, note.ErrRefineInProgress),
		errors.Is(err, note.ErrStaleRefinement),
		errors.Is(err, note.ErrDraftClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, refine.ErrUnavailable),
		errors.Is(err, suggest.ErrUnavailable),
		errors.Is(err, submission.ErrStoreFailure),
		errors.Is(err, note.ErrNoRefiner),
		errors.Is(err, note.ErrNoChecker):
		http.Error(w, "service unavailable, please retry", http.StatusBadGateway)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
