package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

// DocumentService tracks uploaded documents and advances the request's
// status as the required set fills up.
type DocumentService struct {
	pool     *pgxpool.Pool
	visaRepo *repository.VisaRepository
	docRepo  *repository.DocumentRepository

	requiredDocs int
}

func NewDocumentService(pool *pgxpool.Pool, visaRepo *repository.VisaRepository, docRepo *repository.DocumentRepository, requiredDocs int) *DocumentService {
	if requiredDocs <= 0 {
		requiredDocs = 3
	}
	return &DocumentService{pool: pool, visaRepo: visaRepo, docRepo: docRepo, requiredDocs: requiredDocs}
}

// Upload registers an already-stored file as a document of the request and
// advances the status synchronously in the same transaction: the first
// document moves pending → documentsPending, reaching the required count
// moves documentsPending → paymentPending. The count is re-derived after
// the insert and each transition fires at most once, so uploads past the
// threshold change nothing.
func (s *DocumentService) Upload(ctx context.Context, actor model.Identity, visaRequestID, docType, fileURL, fileName string) (*model.Document, error) {
	if !model.ValidDocumentType(docType) {
		return nil, fmt.Errorf("%w: invalid document type %q", ErrValidation, docType)
	}
	if fileURL == "" {
		return nil, fmt.Errorf("%w: document file is required", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("document.Upload begin: %w", err)
	}
	defer tx.Rollback(ctx)

	visaTx := s.visaRepo.WithTx(tx)
	docTx := s.docRepo.WithTx(tx)

	v, err := visaTx.GetByIDForUpdate(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleApplicant || v.ApplicantID != actor.ID {
		return nil, ErrForbidden
	}
	if v.Status != model.StatusPending && v.Status != model.StatusDocumentsPending {
		return nil, fmt.Errorf("%w: cannot upload documents in current status", ErrInvalidState)
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:            uuid.New().String(),
		VisaRequestID: visaRequestID,
		DocumentType:  model.DocumentType(docType),
		DocumentURL:   fileURL,
		DocumentName:  fileName,
		UploadedAt:    now,
	}
	if err := docTx.Create(ctx, doc); err != nil {
		return nil, err
	}

	count, err := docTx.CountByRequest(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	switch {
	case v.Status == model.StatusPending && count >= 1:
		next := model.StatusDocumentsPending
		if count >= s.requiredDocs {
			next = model.StatusPaymentPending
		}
		if err := visaTx.UpdateStatus(ctx, visaRequestID, next, now); err != nil {
			return nil, err
		}
	case v.Status == model.StatusDocumentsPending && count >= s.requiredDocs:
		if err := visaTx.UpdateStatus(ctx, visaRequestID, model.StatusPaymentPending, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("document.Upload commit: %w", err)
	}
	return doc, nil
}

// List returns the request's documents to an authorized participant.
func (s *DocumentService) List(ctx context.Context, actor model.Identity, visaRequestID string) ([]model.Document, error) {
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(actor, v); err != nil {
		return nil, err
	}
	return s.docRepo.ListByRequest(ctx, visaRequestID)
}
