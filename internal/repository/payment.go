package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/model"
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx pgx.Tx) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.PaymentLog) error {
	defer logger.DeferLogDuration("paymentRepo.Create", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_logs (id, visa_request_id, amount, status, reference_number, screenshot_url, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, $8, $8)`,
		p.ID, p.VisaRequestID, p.Amount, p.Status, p.ReferenceNumber, p.ScreenshotURL, p.Note, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("paymentRepo.Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListByRequest(ctx context.Context, visaRequestID string) ([]model.PaymentLog, error) {
	defer logger.DeferLogDuration("paymentRepo.ListByRequest", time.Now())()
	rows, err := r.db.Query(ctx,
		`SELECT id, visa_request_id, amount, status, COALESCE(reference_number,''), COALESCE(screenshot_url,''),
		        verified_by, COALESCE(note,''), created_at, updated_at
		 FROM payment_logs WHERE visa_request_id = $1 ORDER BY created_at DESC`,
		visaRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.ListByRequest query: %w", err)
	}
	defer rows.Close()

	logs := []model.PaymentLog{}
	for rows.Next() {
		var p model.PaymentLog
		if err := rows.Scan(&p.ID, &p.VisaRequestID, &p.Amount, &p.Status, &p.ReferenceNumber, &p.ScreenshotURL,
			&p.VerifiedBy, &p.Note, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("paymentRepo.ListByRequest scan: %w", err)
		}
		logs = append(logs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paymentRepo.ListByRequest rows: %w", err)
	}
	return logs, nil
}

// HasPending reports whether the request has a payment submission awaiting
// verification.
func (r *PaymentRepository) HasPending(ctx context.Context, visaRequestID string) (bool, error) {
	defer logger.DeferLogDuration("paymentRepo.HasPending", time.Now())()
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_logs WHERE visa_request_id = $1 AND status = 'pending'`,
		visaRequestID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("paymentRepo.HasPending: %w", err)
	}
	return n > 0, nil
}

// ResolvePending stamps every pending log of the request with the outcome,
// verifier and note.
func (r *PaymentRepository) ResolvePending(ctx context.Context, visaRequestID string, status model.PaymentStatus, verifiedBy, note string, at time.Time) error {
	defer logger.DeferLogDuration("paymentRepo.ResolvePending", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE payment_logs SET status = $1, verified_by = $2, note = $3, updated_at = $4
		 WHERE visa_request_id = $5 AND status = 'pending'`,
		status, verifiedBy, note, at, visaRequestID,
	)
	if err != nil {
		return fmt.Errorf("paymentRepo.ResolvePending: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetLatest(ctx context.Context, visaRequestID string) (*model.PaymentLog, error) {
	defer logger.DeferLogDuration("paymentRepo.GetLatest", time.Now())()
	p := &model.PaymentLog{}
	err := r.db.QueryRow(ctx,
		`SELECT id, visa_request_id, amount, status, COALESCE(reference_number,''), COALESCE(screenshot_url,''),
		        verified_by, COALESCE(note,''), created_at, updated_at
		 FROM payment_logs WHERE visa_request_id = $1 ORDER BY created_at DESC LIMIT 1`,
		visaRequestID,
	).Scan(&p.ID, &p.VisaRequestID, &p.Amount, &p.Status, &p.ReferenceNumber, &p.ScreenshotURL,
		&p.VerifiedBy, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.GetLatest: %w", err)
	}
	return p, nil
}

// GetStatistics aggregates all payment logs plus a per-month breakdown for
// the current year.
func (r *PaymentRepository) GetStatistics(ctx context.Context) (*model.PaymentStatistics, error) {
	defer logger.DeferLogDuration("paymentRepo.GetStatistics", time.Now())()
	stats := &model.PaymentStatistics{}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0),
		        COUNT(*) FILTER (WHERE status = 'verified'),
		        COALESCE(SUM(amount) FILTER (WHERE status = 'verified'), 0)
		 FROM payment_logs`,
	).Scan(&stats.TotalCount, &stats.TotalAmount, &stats.VerifiedCount, &stats.VerifiedAmount)
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.GetStatistics totals: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT EXTRACT(MONTH FROM created_at)::int, COUNT(*), COALESCE(SUM(amount), 0),
		        COUNT(*) FILTER (WHERE status = 'verified'),
		        COALESCE(SUM(amount) FILTER (WHERE status = 'verified'), 0)
		 FROM payment_logs
		 WHERE EXTRACT(YEAR FROM created_at) = EXTRACT(YEAR FROM CURRENT_DATE)
		 GROUP BY 1 ORDER BY 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.GetStatistics monthly query: %w", err)
	}
	defer rows.Close()

	stats.Monthly = []model.MonthlyPaymentStats{}
	for rows.Next() {
		var m model.MonthlyPaymentStats
		if err := rows.Scan(&m.Month, &m.Count, &m.Amount, &m.VerifiedCount, &m.VerifiedAmount); err != nil {
			return nil, fmt.Errorf("paymentRepo.GetStatistics monthly scan: %w", err)
		}
		stats.Monthly = append(stats.Monthly, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paymentRepo.GetStatistics monthly rows: %w", err)
	}
	return stats, nil
}
