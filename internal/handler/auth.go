package handler

import (
	"net/http"

	"github.com/visaflow/internal/middleware"
	"github.com/visaflow/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, user.ToPublic())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	profile, err := h.auth.Profile(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req service.UpdateProfileRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	user, err := h.auth.UpdateProfile(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, user.ToPublic())
}
