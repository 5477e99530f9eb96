package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visaflow/internal/service"
)

type OfficeHandler struct {
	visa *service.VisaService
}

func NewOfficeHandler(visa *service.VisaService) *OfficeHandler {
	return &OfficeHandler{visa: visa}
}

// Available отдаёт офисы со свободной ёмкостью; query governorate= — фильтр.
func (h *OfficeHandler) Available(w http.ResponseWriter, r *http.Request) {
	offices, err := h.visa.AvailableOffices(r.Context(), r.URL.Query().Get("governorate"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, offices)
}

func (h *OfficeHandler) Get(w http.ResponseWriter, r *http.Request) {
	office, err := h.visa.Office(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, office)
}
