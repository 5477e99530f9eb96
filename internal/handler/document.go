package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visaflow/internal/filestore"
	"github.com/visaflow/internal/middleware"
	"github.com/visaflow/internal/service"
)

type DocumentHandler struct {
	docs  *service.DocumentService
	files *filestore.Store
}

func NewDocumentHandler(docs *service.DocumentService, files *filestore.Store) *DocumentHandler {
	return &DocumentHandler{docs: docs, files: files}
}

// Upload принимает multipart/form-data: поле doc_type и файл в поле file.
// Скан сохраняется в FileStore, затем документ привязывается к заявке.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxUploadSize)
	if err := r.ParseMultipartForm(h.files.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}
	docType := r.FormValue("doc_type")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	saved, err := h.files.Save(r.Context(), file, header)
	if err != nil {
		if errors.Is(err, filestore.ErrBadFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	doc, err := h.docs.Upload(r.Context(), actor, chi.URLParam(r, "id"), docType, saved.URL, saved.FileName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetIdentity(r.Context())
	docs, err := h.docs.List(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, docs)
}
