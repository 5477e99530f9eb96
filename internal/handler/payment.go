package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visaflow/internal/middleware"
	"github.com/visaflow/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type submitScreenshotRequest struct {
	ScreenshotURL string `json:"screenshot_url"`
}

// SubmitScreenshot — первый путь оплаты: скриншот уже загружен через
// /api/files/upload, здесь привязывается к заявке.
func (h *PaymentHandler) SubmitScreenshot(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req submitScreenshotRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	log, err := h.payments.SubmitScreenshot(r.Context(), actor, chi.URLParam(r, "id"), req.ScreenshotURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, log)
}

// Submit — второй путь оплаты: реквизиты перевода (reference) плюс скриншот.
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req service.SubmitPaymentRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	log, err := h.payments.Submit(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, log)
}

func (h *PaymentHandler) Review(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	var req service.ReviewPaymentRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.payments.Review(r.Context(), actor, chi.URLParam(r, "id"), req); err != nil {
		writeServiceError(w, err)
		return
	}
	msg := "payment rejected"
	if req.Action == "verify" {
		msg = "payment verified"
	}
	writeMessage(w, http.StatusOK, msg)
}

func (h *PaymentHandler) Details(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	log, err := h.payments.Details(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, log)
}

func (h *PaymentHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	stats, err := h.payments.Statistics(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
