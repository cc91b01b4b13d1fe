package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"carenote/internal/clinical"
	"carenote/internal/compliance"
	"carenote/internal/suggest"
	"carenote/internal/workflow"
)

// CatalogHandler serves the static reference data and suggestion lookups.
type CatalogHandler struct {
	Suggestions suggest.Source
	Catalog     *suggest.Catalog
	Logger      *zap.Logger
}

type ageGroupDTO struct {
	ID    clinical.AgeGroup `json:"id"`
	Label string            `json:"label"`
}

type stepDTO struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Tasks       []string         `json:"tasks"`
	Section     clinical.Section `json:"section"`
	NoteTitle   string           `json:"note_title"`
	SampleNote  string           `json:"sample_note"`
}

func stepDTOs(steps []workflow.Step, role clinical.Role) []stepDTO {
	out := make([]stepDTO, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepDTO{
			Title:       s.Title,
			Description: s.Description,
			Tasks:       s.Tasks,
			Section:     s.Section,
			NoteTitle:   s.NoteTitleFor(role),
			SampleNote:  s.SampleNote,
		})
	}
	return out
}

func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	groups := make([]ageGroupDTO, 0, len(clinical.AgeGroups))
	for _, g := range clinical.AgeGroups {
		groups = append(groups, ageGroupDTO{ID: g, Label: g.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"age_groups": groups,
		"modalities": clinical.Selectable,
		"standards":  compliance.Standards,
		"steps":      stepDTOs(workflow.TreatmentPlanSteps, clinical.RoleTherapist),
	})
}

func (h *CatalogHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// any form field may ask; sections without catalog content get []
	section := clinical.Section(strings.TrimSpace(q.Get("section")))
	if section == "" {
		http.Error(w, "section required", http.StatusBadRequest)
		return
	}
	ag, err := clinical.ParseAgeGroup(q.Get("age_group"))
	if err != nil {
		http.Error(w, "invalid age_group", http.StatusBadRequest)
		return
	}
	m, err := clinical.ParseModality(q.Get("modality"))
	if err != nil {
		http.Error(w, "invalid modality", http.StatusBadRequest)
		return
	}

	items, err := h.Suggestions.Suggestions(r.Context(), suggest.Key{Section: section, AgeGroup: ag, Modality: m})
	if err != nil {
		h.Logger.Warn("suggestions failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": items})
}

func (h *CatalogHandler) Insight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ag, err := clinical.ParseAgeGroup(q.Get("age_group"))
	if err != nil {
		http.Error(w, "invalid age_group", http.StatusBadRequest)
		return
	}
	m, err := clinical.ParseModality(q.Get("modality"))
	if err != nil {
		http.Error(w, "invalid modality", http.StatusBadRequest)
		return
	}
	in, ok := h.Catalog.Insight(m, ag)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (h *CatalogHandler) Guideline(w http.ResponseWriter, r *http.Request) {
	section := clinical.Section(chi.URLParam(r, "section"))
	text := compliance.Guideline(section)
	if text == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"section": section, "guideline": text})
}
