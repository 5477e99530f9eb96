package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

func TestDocumentUploadAdvancesStatus(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	applicant := e.newApplicant(t)
	v := e.newRequest(t, applicant, model.StatusPending)

	upload := func(i int, docType string) {
		t.Helper()
		url := fmt.Sprintf("/api/files/doc%d.pdf", i)
		if _, err := e.docs.Upload(ctx, applicant, v.ID, docType, url, fmt.Sprintf("doc%d.pdf", i)); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	upload(1, "passport")
	if got := e.requestStatus(t, v.ID); got != model.StatusDocumentsPending {
		t.Fatalf("after 1 doc: status = %s, want documentsPending", got)
	}

	upload(2, "photo")
	if got := e.requestStatus(t, v.ID); got != model.StatusDocumentsPending {
		t.Fatalf("after 2 docs: status = %s, want documentsPending", got)
	}

	upload(3, "university_certificate")
	if got := e.requestStatus(t, v.ID); got != model.StatusPaymentPending {
		t.Fatalf("after 3 docs: status = %s, want paymentPending", got)
	}

	// после перехода к оплате загрузка закрыта
	if _, err := e.docs.Upload(ctx, applicant, v.ID, "other", "/api/files/extra.pdf", "extra.pdf"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("upload past threshold: err = %v, want ErrInvalidState", err)
	}

	docs, err := e.docs.List(ctx, applicant, v.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("got %d documents, want 3", len(docs))
	}
}

func TestDocumentUploadGuards(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	applicant := e.newApplicant(t)
	v := e.newRequest(t, applicant, model.StatusPending)

	if _, err := e.docs.Upload(ctx, applicant, v.ID, "bank_statement", "/api/files/d.pdf", "d.pdf"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown type: err = %v, want ErrValidation", err)
	}
	if _, err := e.docs.Upload(ctx, applicant, v.ID, "passport", "", "d.pdf"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty url: err = %v, want ErrValidation", err)
	}
	if _, err := e.docs.Upload(ctx, e.newApplicant(t), v.ID, "passport", "/api/files/d.pdf", "d.pdf"); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign applicant: err = %v, want ErrForbidden", err)
	}
	if _, err := e.docs.Upload(ctx, applicant, "missing", "passport", "/api/files/d.pdf", "d.pdf"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing request: err = %v, want ErrNotFound", err)
	}
}

func TestDocumentListAuthorization(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	applicant := e.newApplicant(t)
	v := e.newRequest(t, applicant, model.StatusPending)

	if _, err := e.docs.List(ctx, e.newApplicant(t), v.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign applicant: err = %v, want ErrForbidden", err)
	}
	if _, err := e.docs.List(ctx, e.newAdmin(t), v.ID); err != nil {
		t.Errorf("admin list: %v", err)
	}
}
