package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/model"
)

// ErrActiveRequestExists maps the partial unique index on active requests:
// one non-terminal request per applicant, enforced by the storage layer.
var ErrActiveRequestExists = errors.New("active visa request already exists")

type VisaRepository struct {
	db DBTX
}

func NewVisaRepository(db DBTX) *VisaRepository {
	return &VisaRepository{db: db}
}

func (r *VisaRepository) WithTx(tx pgx.Tx) *VisaRepository {
	return &VisaRepository{db: tx}
}

const visaColumns = `id, applicant_id, office_id, admin_id, passport_number, status,
	payment_amount, COALESCE(payment_reference,''), COALESCE(payment_screenshot_url,''),
	payment_verified, payment_verified_at, COALESCE(visa_document_url,''), created_at, updated_at`

func scanVisa(row pgx.Row) (*model.VisaRequest, error) {
	v := &model.VisaRequest{}
	err := row.Scan(&v.ID, &v.ApplicantID, &v.OfficeID, &v.AdminID, &v.PassportNumber, &v.Status,
		&v.PaymentAmount, &v.PaymentReference, &v.PaymentScreenshotURL,
		&v.PaymentVerified, &v.PaymentVerifiedAt, &v.VisaDocumentURL, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VisaRepository) Create(ctx context.Context, v *model.VisaRequest) error {
	defer logger.DeferLogDuration("visaRepo.Create", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO visa_requests (id, applicant_id, passport_number, status, payment_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		v.ID, v.ApplicantID, v.PassportNumber, v.Status, v.PaymentAmount, v.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrActiveRequestExists
	}
	if err != nil {
		return fmt.Errorf("visaRepo.Create: %w", err)
	}
	return nil
}

func (r *VisaRepository) GetByID(ctx context.Context, id string) (*model.VisaRequest, error) {
	defer logger.DeferLogDuration("visaRepo.GetByID", time.Now())()
	v, err := scanVisa(r.db.QueryRow(ctx,
		`SELECT `+visaColumns+` FROM visa_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("visaRepo.GetByID: %w", err)
	}
	return v, nil
}

// GetByIDForUpdate locks the request row inside the enclosing transaction so
// a transition guard can be re-validated before the write.
func (r *VisaRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.VisaRequest, error) {
	defer logger.DeferLogDuration("visaRepo.GetByIDForUpdate", time.Now())()
	v, err := scanVisa(r.db.QueryRow(ctx,
		`SELECT `+visaColumns+` FROM visa_requests WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("visaRepo.GetByIDForUpdate: %w", err)
	}
	return v, nil
}

// ListForActor returns requests visible to the actor: applicants see their
// own, offices their assigned, admins everything.
func (r *VisaRepository) ListForActor(ctx context.Context, actor model.Identity) ([]model.VisaRequest, error) {
	defer logger.DeferLogDuration("visaRepo.ListForActor", time.Now())()
	sql := `SELECT ` + visaColumns + ` FROM visa_requests`
	args := []any{}
	switch actor.Role {
	case model.RoleApplicant:
		sql += ` WHERE applicant_id = $1`
		args = append(args, actor.ID)
	case model.RoleOffice:
		sql += ` WHERE office_id = $1`
		args = append(args, actor.ID)
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("visaRepo.ListForActor query: %w", err)
	}
	defer rows.Close()

	requests := []model.VisaRequest{}
	for rows.Next() {
		v := &model.VisaRequest{}
		if err := rows.Scan(&v.ID, &v.ApplicantID, &v.OfficeID, &v.AdminID, &v.PassportNumber, &v.Status,
			&v.PaymentAmount, &v.PaymentReference, &v.PaymentScreenshotURL,
			&v.PaymentVerified, &v.PaymentVerifiedAt, &v.VisaDocumentURL, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("visaRepo.ListForActor scan: %w", err)
		}
		requests = append(requests, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("visaRepo.ListForActor rows: %w", err)
	}
	return requests, nil
}

func (r *VisaRepository) UpdateStatus(ctx context.Context, id string, status model.VisaStatus, at time.Time) error {
	defer logger.DeferLogDuration("visaRepo.UpdateStatus", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE visa_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		status, at, id,
	)
	if err != nil {
		return fmt.Errorf("visaRepo.UpdateStatus: %w", err)
	}
	return nil
}

func (r *VisaRepository) SetVisaDocumentURL(ctx context.Context, id, url string) error {
	defer logger.DeferLogDuration("visaRepo.SetVisaDocumentURL", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE visa_requests SET visa_document_url = $1 WHERE id = $2`, url, id,
	)
	if err != nil {
		return fmt.Errorf("visaRepo.SetVisaDocumentURL: %w", err)
	}
	return nil
}

// Assign sets office, admin and the assigned status in one write. The status
// predicate keeps two concurrent assignments from both succeeding.
func (r *VisaRepository) Assign(ctx context.Context, id, officeID, adminID string, at time.Time) (bool, error) {
	defer logger.DeferLogDuration("visaRepo.Assign", time.Now())()
	tag, err := r.db.Exec(ctx,
		`UPDATE visa_requests SET office_id = $1, admin_id = $2, status = $3, updated_at = $4
		 WHERE id = $5 AND status = $6`,
		officeID, adminID, model.StatusAssigned, at, id, model.StatusPaymentVerified,
	)
	if err != nil {
		return false, fmt.Errorf("visaRepo.Assign: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *VisaRepository) SetPaymentSubmission(ctx context.Context, id, reference, screenshotURL string, at time.Time) error {
	defer logger.DeferLogDuration("visaRepo.SetPaymentSubmission", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE visa_requests SET payment_reference = $1, payment_screenshot_url = $2, updated_at = $3
		 WHERE id = $4`,
		reference, screenshotURL, at, id,
	)
	if err != nil {
		return fmt.Errorf("visaRepo.SetPaymentSubmission: %w", err)
	}
	return nil
}

func (r *VisaRepository) SetPaymentScreenshot(ctx context.Context, id, screenshotURL string, status model.VisaStatus, at time.Time) error {
	defer logger.DeferLogDuration("visaRepo.SetPaymentScreenshot", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE visa_requests SET payment_screenshot_url = $1, status = $2, updated_at = $3
		 WHERE id = $4`,
		screenshotURL, status, at, id,
	)
	if err != nil {
		return fmt.Errorf("visaRepo.SetPaymentScreenshot: %w", err)
	}
	return nil
}

func (r *VisaRepository) MarkPaymentVerified(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("visaRepo.MarkPaymentVerified", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE visa_requests SET payment_verified = true, payment_verified_at = $1, status = $2, updated_at = $1
		 WHERE id = $3`,
		at, model.StatusPaymentVerified, id,
	)
	if err != nil {
		return fmt.Errorf("visaRepo.MarkPaymentVerified: %w", err)
	}
	return nil
}
