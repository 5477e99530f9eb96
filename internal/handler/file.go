package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/visaflow/internal/filestore"
)

type FileHandler struct {
	files *filestore.Store
}

func NewFileHandler(files *filestore.Store) *FileHandler {
	return &FileHandler{files: files}
}

// Upload принимает multipart/form-data с полем "file" (вложения чата,
// скриншоты оплаты).
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxUploadSize)
	if err := r.ParseMultipartForm(h.files.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}
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
		if r.Context().Err() != nil {
			return
		}
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, saved)
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.files.Serve(w, r, chi.URLParam(r, "filename"))
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(chi.URLParam(r, "filename")); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	writeMessage(w, http.StatusOK, "file deleted")
}
