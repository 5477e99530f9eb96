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

type OfficeRepository struct {
	db DBTX
}

func NewOfficeRepository(db DBTX) *OfficeRepository {
	return &OfficeRepository{db: db}
}

func (r *OfficeRepository) WithTx(tx pgx.Tx) *OfficeRepository {
	return &OfficeRepository{db: tx}
}

const officeSelect = `SELECT u.id, u.name, u.email, COALESCE(u.phone_number,''),
		COALESCE(o.address,''), COALESCE(o.governorate,''),
		o.visa_limit, o.active_visa_requests, o.last_active_at
	 FROM users u JOIN offices o ON o.id = u.id`

func scanOffice(row pgx.Row) (*model.Office, error) {
	o := &model.Office{}
	err := row.Scan(&o.ID, &o.Name, &o.Email, &o.PhoneNumber,
		&o.Address, &o.Governorate, &o.VisaLimit, &o.ActiveVisaRequests, &o.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OfficeRepository) CreateProfile(ctx context.Context, id, address, governorate string, visaLimit int, createdAt time.Time) error {
	defer logger.DeferLogDuration("officeRepo.CreateProfile", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO offices (id, address, governorate, visa_limit, active_visa_requests, created_at)
		 VALUES ($1, $2, $3, $4, 0, $5)`,
		id, address, governorate, visaLimit, createdAt,
	)
	if err != nil {
		return fmt.Errorf("officeRepo.CreateProfile: %w", err)
	}
	return nil
}

func (r *OfficeRepository) GetByID(ctx context.Context, id string) (*model.Office, error) {
	defer logger.DeferLogDuration("officeRepo.GetByID", time.Now())()
	o, err := scanOffice(r.db.QueryRow(ctx, officeSelect+` WHERE u.id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("officeRepo.GetByID: %w", err)
	}
	return o, err
}

// GetByIDForUpdate locks the office row for the duration of the enclosing
// transaction. Capacity checks before increment/decrement go through this.
func (r *OfficeRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Office, error) {
	defer logger.DeferLogDuration("officeRepo.GetByIDForUpdate", time.Now())()
	o := &model.Office{}
	err := r.db.QueryRow(ctx,
		`SELECT id, visa_limit, active_visa_requests FROM offices WHERE id = $1 FOR UPDATE`, id,
	).Scan(&o.ID, &o.VisaLimit, &o.ActiveVisaRequests)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("officeRepo.GetByIDForUpdate: %w", err)
	}
	return o, nil
}

func (r *OfficeRepository) ListAvailable(ctx context.Context, governorate string) ([]model.Office, error) {
	defer logger.DeferLogDuration("officeRepo.ListAvailable", time.Now())()
	sql := officeSelect + ` WHERE o.active_visa_requests < o.visa_limit`
	args := []any{}
	if governorate != "" {
		sql += ` AND o.governorate = $1`
		args = append(args, governorate)
	}
	sql += ` ORDER BY u.name`
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("officeRepo.ListAvailable query: %w", err)
	}
	defer rows.Close()

	offices := []model.Office{}
	for rows.Next() {
		o := &model.Office{}
		if err := rows.Scan(&o.ID, &o.Name, &o.Email, &o.PhoneNumber,
			&o.Address, &o.Governorate, &o.VisaLimit, &o.ActiveVisaRequests, &o.LastActiveAt); err != nil {
			return nil, fmt.Errorf("officeRepo.ListAvailable scan: %w", err)
		}
		offices = append(offices, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("officeRepo.ListAvailable rows: %w", err)
	}
	return offices, nil
}

// IncrementActive adds one to the office's active-request counter. The sole
// call site is the assignment transaction.
func (r *OfficeRepository) IncrementActive(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("officeRepo.IncrementActive", time.Now())()
	tag, err := r.db.Exec(ctx,
		`UPDATE offices SET active_visa_requests = active_visa_requests + 1, last_active_at = $1
		 WHERE id = $2 AND active_visa_requests < visa_limit`, at, id,
	)
	if err != nil {
		return fmt.Errorf("officeRepo.IncrementActive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("officeRepo.IncrementActive: office %s at capacity", id)
	}
	return nil
}

// DecrementActive releases one slot. The sole call site is the transition of
// an office-bearing request into a terminal state.
func (r *OfficeRepository) DecrementActive(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("officeRepo.DecrementActive", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE offices SET active_visa_requests = GREATEST(active_visa_requests - 1, 0)
		 WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("officeRepo.DecrementActive: %w", err)
	}
	return nil
}

func (r *OfficeRepository) CreateJoinRequest(ctx context.Context, j *model.OfficeJoinRequest) error {
	defer logger.DeferLogDuration("officeRepo.CreateJoinRequest", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO office_join_requests (id, visa_request_id, office_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		j.ID, j.VisaRequestID, j.OfficeID, j.Status, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("officeRepo.CreateJoinRequest: %w", err)
	}
	return nil
}

func (r *OfficeRepository) GetJoinRequest(ctx context.Context, visaRequestID, officeID string) (*model.OfficeJoinRequest, error) {
	defer logger.DeferLogDuration("officeRepo.GetJoinRequest", time.Now())()
	j := &model.OfficeJoinRequest{}
	err := r.db.QueryRow(ctx,
		`SELECT id, visa_request_id, office_id, status, created_at, updated_at
		 FROM office_join_requests WHERE visa_request_id = $1 AND office_id = $2`,
		visaRequestID, officeID,
	).Scan(&j.ID, &j.VisaRequestID, &j.OfficeID, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("officeRepo.GetJoinRequest: %w", err)
	}
	return j, nil
}

func (r *OfficeRepository) ListJoinRequests(ctx context.Context, visaRequestID string) ([]model.OfficeJoinRequest, error) {
	defer logger.DeferLogDuration("officeRepo.ListJoinRequests", time.Now())()
	rows, err := r.db.Query(ctx,
		`SELECT id, visa_request_id, office_id, status, created_at, updated_at
		 FROM office_join_requests WHERE visa_request_id = $1 ORDER BY created_at`,
		visaRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("officeRepo.ListJoinRequests query: %w", err)
	}
	defer rows.Close()

	reqs := []model.OfficeJoinRequest{}
	for rows.Next() {
		var j model.OfficeJoinRequest
		if err := rows.Scan(&j.ID, &j.VisaRequestID, &j.OfficeID, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("officeRepo.ListJoinRequests scan: %w", err)
		}
		reqs = append(reqs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("officeRepo.ListJoinRequests rows: %w", err)
	}
	return reqs, nil
}

// ResolveJoinRequests approves the chosen office's join request and rejects
// every other office's in one statement.
func (r *OfficeRepository) ResolveJoinRequests(ctx context.Context, visaRequestID, chosenOfficeID string, at time.Time) error {
	defer logger.DeferLogDuration("officeRepo.ResolveJoinRequests", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE office_join_requests
		 SET status = CASE WHEN office_id = $1 THEN 'approved' ELSE 'rejected' END, updated_at = $2
		 WHERE visa_request_id = $3 AND status = 'pending'`,
		chosenOfficeID, at, visaRequestID,
	)
	if err != nil {
		return fmt.Errorf("officeRepo.ResolveJoinRequests: %w", err)
	}
	return nil
}
