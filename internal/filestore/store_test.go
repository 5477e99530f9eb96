package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func multipartFile(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	return file, header
}

func TestSaveAndServe(t *testing.T) {
	store := New(t.TempDir(), 1<<20)
	content := append(append([]byte{}, pngHeader...), []byte("pixel data goes here")...)
	file, header := multipartFile(t, "passport scan.png", content)

	saved, err := store.Save(context.Background(), file, header)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(saved.URL, "/api/files/") {
		t.Errorf("url = %q", saved.URL)
	}
	if saved.ContentType != "image" {
		t.Errorf("content type = %q, want image", saved.ContentType)
	}
	if saved.FileName != "passport scan.png" {
		t.Errorf("file name = %q", saved.FileName)
	}

	// отдача разжимает файл обратно в исходные байты
	name := strings.TrimPrefix(saved.URL, "/api/files/")
	rec := httptest.NewRecorder()
	store.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/files/"+name, nil), name)
	if rec.Code != http.StatusOK {
		t.Fatalf("serve status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, content) {
		t.Error("served bytes differ from uploaded bytes")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
}

func TestSaveBlockedExtension(t *testing.T) {
	store := New(t.TempDir(), 1<<20)
	file, header := multipartFile(t, "malware.exe", []byte("MZ..."))

	if _, err := store.Save(context.Background(), file, header); !errors.Is(err, ErrBadFile) {
		t.Errorf("err = %v, want ErrBadFile", err)
	}
}

func TestSaveMagicMismatch(t *testing.T) {
	store := New(t.TempDir(), 1<<20)
	// заявлен PNG, внутри — текст
	file, header := multipartFile(t, "fake.png", []byte("definitely not a png"))

	if _, err := store.Save(context.Background(), file, header); !errors.Is(err, ErrBadFile) {
		t.Errorf("err = %v, want ErrBadFile", err)
	}
}

func TestDelete(t *testing.T) {
	store := New(t.TempDir(), 1<<20)
	content := append(append([]byte{}, pngHeader...), []byte("to be removed")...)
	file, header := multipartFile(t, "old.png", content)
	saved, err := store.Save(context.Background(), file, header)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	name := strings.TrimPrefix(saved.URL, "/api/files/")
	if err := store.Delete(name); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// после удаления файл больше не отдаётся
	rec := httptest.NewRecorder()
	store.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/files/"+name, nil), name)
	if rec.Code != http.StatusNotFound {
		t.Errorf("serve after delete: status = %d, want 404", rec.Code)
	}

	if err := store.Delete("missing.png"); err == nil {
		t.Error("delete of unknown file: err = nil, want error")
	}
}

func TestServeUnknownFile(t *testing.T) {
	store := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	store.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/files/none.png", nil), "none.png")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeContentDisposition(t *testing.T) {
	store := New(t.TempDir(), 1<<20)
	file, header := multipartFile(t, "notes.txt", []byte("plain text"))
	saved, err := store.Save(context.Background(), file, header)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	name := strings.TrimPrefix(saved.URL, "/api/files/")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/files/"+name+"?name=notes.txt", nil)
	store.Serve(rec, req, name)
	if disp := rec.Header().Get("Content-Disposition"); !strings.Contains(disp, "notes.txt") {
		t.Errorf("content disposition = %q", disp)
	}
}
