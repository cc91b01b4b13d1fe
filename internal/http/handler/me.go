package handler

import "net/http"

type MeHandler struct{}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": p.ProfileID,
		"role":       p.Role,
	})
}
