package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/model"
)

type DocumentRepository struct {
	db DBTX
}

func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) WithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *model.Document) error {
	defer logger.DeferLogDuration("docRepo.Create", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, visa_request_id, document_type, document_url, document_name, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.VisaRequestID, d.DocumentType, d.DocumentURL, d.DocumentName, d.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("docRepo.Create: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByRequest(ctx context.Context, visaRequestID string) ([]model.Document, error) {
	defer logger.DeferLogDuration("docRepo.ListByRequest", time.Now())()
	rows, err := r.db.Query(ctx,
		`SELECT id, visa_request_id, document_type, document_url, COALESCE(document_name,''), uploaded_at
		 FROM documents WHERE visa_request_id = $1 ORDER BY uploaded_at`,
		visaRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("docRepo.ListByRequest query: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.VisaRequestID, &d.DocumentType, &d.DocumentURL, &d.DocumentName, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("docRepo.ListByRequest scan: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docRepo.ListByRequest rows: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) CountByRequest(ctx context.Context, visaRequestID string) (int, error) {
	defer logger.DeferLogDuration("docRepo.CountByRequest", time.Now())()
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE visa_request_id = $1`, visaRequestID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("docRepo.CountByRequest: %w", err)
	}
	return n, nil
}
