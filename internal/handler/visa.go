package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visaflow/internal/middleware"
	"github.com/visaflow/internal/service"
)

type VisaHandler struct {
	visa *service.VisaService
}

func NewVisaHandler(visa *service.VisaService) *VisaHandler {
	return &VisaHandler{visa: visa}
}

type createVisaRequest struct {
	PassportNumber string `json:"passport_number"`
}

func (h *VisaHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req createVisaRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	v, err := h.visa.Create(r.Context(), actor, req.PassportNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, v)
}

func (h *VisaHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	list, err := h.visa.List(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (h *VisaHandler) Details(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	details, err := h.visa.Details(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, details)
}

func (h *VisaHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req service.UpdateStatusRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	v, err := h.visa.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

type assignOfficeRequest struct {
	OfficeID string `json:"office_id"`
}

func (h *VisaHandler) AssignOffice(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req assignOfficeRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	v, err := h.visa.AssignOffice(r.Context(), actor, chi.URLParam(r, "id"), req.OfficeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *VisaHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	jr, err := h.visa.RequestJoin(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, jr)
}
