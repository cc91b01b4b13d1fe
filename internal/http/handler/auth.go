package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/clinical"
)

type AuthHandler struct {
	Svc    *auth.Service
	JWT    *auth.JWT
	Logger *zap.Logger
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	role := clinical.RoleClient
	if req.Role != "" {
		var err error
		if role, err = clinical.ParseRole(req.Role); err != nil {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
	}

	p, err := h.Svc.Register(r.Context(), req.Email, req.Password, role)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	case errors.Is(err, auth.ErrEmailTaken):
		http.Error(w, "email already used", http.StatusConflict)
		return
	case err != nil:
		h.Logger.Error("register failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.writeToken(w, http.StatusCreated, p)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	case err != nil:
		h.Logger.Error("login failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.writeToken(w, http.StatusOK, p)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, status int, p auth.Principal) {
	token, err := h.JWT.Sign(p)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, map[string]any{
		"token":      token,
		"profile_id": p.ProfileID,
		"role":       p.Role,
	})
}
