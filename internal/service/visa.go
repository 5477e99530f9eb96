package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

// VisaService is the lifecycle state machine:
//
//	pending → documentsPending → paymentPending → paymentVerified →
//	assigned → processing → completed
//
// with rejected reachable from any non-terminal state. completed and
// rejected are terminal.
type VisaService struct {
	pool       *pgxpool.Pool
	visaRepo   *repository.VisaRepository
	officeRepo *repository.OfficeRepository
	docRepo    *repository.DocumentRepository
	payRepo    *repository.PaymentRepository
	userRepo   *repository.UserRepository
	chat       *ChatService

	visaFee float64
}

func NewVisaService(
	pool *pgxpool.Pool,
	visaRepo *repository.VisaRepository,
	officeRepo *repository.OfficeRepository,
	docRepo *repository.DocumentRepository,
	payRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
	chat *ChatService,
	visaFee float64,
) *VisaService {
	return &VisaService{
		pool: pool, visaRepo: visaRepo, officeRepo: officeRepo, docRepo: docRepo,
		payRepo: payRepo, userRepo: userRepo, chat: chat, visaFee: visaFee,
	}
}

// Create opens a new request for the applicant. The partial unique index on
// active requests is the authoritative duplicate guard: the insert itself
// fails on a second non-terminal request, no matter how races interleave.
func (s *VisaService) Create(ctx context.Context, actor model.Identity, passportNumber string) (*model.VisaRequest, error) {
	if actor.Role != model.RoleApplicant {
		return nil, fmt.Errorf("%w: only applicants can create visa requests", ErrForbidden)
	}
	if passportNumber == "" {
		return nil, fmt.Errorf("%w: passport number is required", ErrValidation)
	}

	now := time.Now().UTC()
	v := &model.VisaRequest{
		ID:             uuid.New().String(),
		ApplicantID:    actor.ID,
		PassportNumber: passportNumber,
		Status:         model.StatusPending,
		PaymentAmount:  s.visaFee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.visaRepo.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrActiveRequestExists) {
			return nil, fmt.Errorf("%w: you already have an active visa request", ErrConflict)
		}
		return nil, err
	}
	return v, nil
}

func (s *VisaService) List(ctx context.Context, actor model.Identity) ([]model.VisaRequest, error) {
	return s.visaRepo.ListForActor(ctx, actor)
}

// Details returns the request with documents, payment logs and participant
// summaries, subject to the participant authorization rule.
func (s *VisaService) Details(ctx context.Context, actor model.Identity, id string) (*model.VisaRequestDetails, error) {
	v, err := s.visaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(actor, v); err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payRepo.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &model.VisaRequestDetails{
		VisaRequest: *v,
		Documents:   docs,
		Payments:    payments,
	}
	if applicant, err := s.userRepo.GetByID(ctx, v.ApplicantID); err == nil {
		pub := applicant.ToPublic()
		details.Applicant = &pub
	}
	if v.OfficeID != nil {
		if office, err := s.officeRepo.GetByID(ctx, *v.OfficeID); err == nil {
			details.Office = office
		}
	}
	if v.AdminID != nil {
		if admin, err := s.userRepo.GetByID(ctx, *v.AdminID); err == nil {
			pub := admin.ToPublic()
			details.Admin = &pub
		}
	}
	return details, nil
}

type UpdateStatusRequest struct {
	Status          string `json:"status"`
	VisaDocumentURL string `json:"visa_document_url,omitempty"`
}

// officeAllowedStatus — офис двигает только свои заявки и только в
// processing или completed; остальное решает администратор.
func officeAllowedStatus(status model.VisaStatus) bool {
	return status == model.StatusProcessing || status == model.StatusCompleted
}

// UpdateStatus applies an explicit transition. Admins may set any valid
// status on any request; offices only processing/completed on their own.
// Terminal requests are immutable. Leaving an office-bearing state for a
// terminal one releases the office's capacity slot in the same transaction.
func (s *VisaService) UpdateStatus(ctx context.Context, actor model.Identity, id string, req UpdateStatusRequest) (*model.VisaRequest, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleOffice {
		return nil, fmt.Errorf("%w: only admins and offices can update status", ErrForbidden)
	}
	if !model.ValidVisaStatus(req.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, req.Status)
	}
	newStatus := model.VisaStatus(req.Status)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("visa.UpdateStatus begin: %w", err)
	}
	defer tx.Rollback(ctx)

	visaTx := s.visaRepo.WithTx(tx)
	v, err := visaTx.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleOffice {
		if v.OfficeID == nil || *v.OfficeID != actor.ID {
			return nil, ErrForbidden
		}
		if !officeAllowedStatus(newStatus) {
			return nil, fmt.Errorf("%w: offices can only change status to processing or completed", ErrForbidden)
		}
	}
	if v.Status.Terminal() {
		return nil, fmt.Errorf("%w: request is already %s", ErrInvalidState, v.Status)
	}

	now := time.Now().UTC()
	if err := visaTx.UpdateStatus(ctx, id, newStatus, now); err != nil {
		return nil, err
	}
	if newStatus == model.StatusCompleted && req.VisaDocumentURL != "" {
		if err := visaTx.SetVisaDocumentURL(ctx, id, req.VisaDocumentURL); err != nil {
			return nil, err
		}
	}
	// единственная точка декремента счётчика офиса
	if newStatus.Terminal() && v.Status.OfficeBearing() && v.OfficeID != nil {
		if err := s.officeRepo.WithTx(tx).DecrementActive(ctx, *v.OfficeID); err != nil {
			return nil, err
		}
	}
	if _, err := s.chat.SystemMessageTx(ctx, tx, v, "Visa request status changed to "+string(newStatus), actor.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("visa.UpdateStatus commit: %w", err)
	}
	return s.visaRepo.GetByID(ctx, id)
}

// RequestJoin records an office's offer to take the case. Full offices are
// rejected outright, duplicates conflict.
func (s *VisaService) RequestJoin(ctx context.Context, actor model.Identity, visaRequestID string) (*model.OfficeJoinRequest, error) {
	if actor.Role != model.RoleOffice {
		return nil, fmt.Errorf("%w: only offices can request to join", ErrForbidden)
	}
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if v.Status.Terminal() {
		return nil, fmt.Errorf("%w: request is already %s", ErrInvalidState, v.Status)
	}
	office, err := s.officeRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !office.HasCapacity() {
		return nil, fmt.Errorf("%w: office has reached its visa request limit", ErrInvalidState)
	}
	if _, err := s.officeRepo.GetJoinRequest(ctx, visaRequestID, actor.ID); err == nil {
		return nil, fmt.Errorf("%w: office has already requested to join this visa request", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	j := &model.OfficeJoinRequest{
		ID:            uuid.New().String(),
		VisaRequestID: visaRequestID,
		OfficeID:      actor.ID,
		Status:        model.JoinPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.officeRepo.CreateJoinRequest(ctx, j); err != nil {
		return nil, err
	}
	j.UpdatedAt = j.CreatedAt
	return j, nil
}

// AssignOffice is the assignment transaction: request moves to assigned,
// the office's counter is incremented, competing join requests resolve, and
// a system message lands in the chat — all or nothing. Both guards (status
// still paymentVerified, office still under its limit) are re-validated
// under row locks inside the transaction, so two concurrent assignments
// cannot both succeed.
func (s *VisaService) AssignOffice(ctx context.Context, actor model.Identity, visaRequestID, officeID string) (*model.VisaRequest, error) {
	if actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins can assign offices", ErrForbidden)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("visa.AssignOffice begin: %w", err)
	}
	defer tx.Rollback(ctx)

	visaTx := s.visaRepo.WithTx(tx)
	officeTx := s.officeRepo.WithTx(tx)

	v, err := visaTx.GetByIDForUpdate(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if v.Status != model.StatusPaymentVerified {
		return nil, fmt.Errorf("%w: visa request must be paid and verified before assigning an office", ErrInvalidState)
	}
	office, err := officeTx.GetByIDForUpdate(ctx, officeID)
	if err != nil {
		return nil, err
	}
	if !office.HasCapacity() {
		return nil, fmt.Errorf("%w: office has reached maximum capacity", ErrInvalidState)
	}

	now := time.Now().UTC()
	ok, err := visaTx.Assign(ctx, visaRequestID, officeID, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// проигравший из двух конкурентных назначений
		return nil, fmt.Errorf("%w: visa request must be paid and verified before assigning an office", ErrInvalidState)
	}
	if err := officeTx.IncrementActive(ctx, officeID, now); err != nil {
		return nil, err
	}
	if err := officeTx.ResolveJoinRequests(ctx, visaRequestID, officeID, now); err != nil {
		return nil, err
	}

	assigned := *v
	assigned.OfficeID = &officeID
	adminID := actor.ID
	assigned.AdminID = &adminID
	assigned.Status = model.StatusAssigned
	if _, err := s.chat.SystemMessageTx(ctx, tx, &assigned, "An office has been assigned to your visa request", actor.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("visa.AssignOffice commit: %w", err)
	}
	return s.visaRepo.GetByID(ctx, visaRequestID)
}

// AvailableOffices lists offices with spare capacity, optionally filtered by
// governorate.
func (s *VisaService) AvailableOffices(ctx context.Context, governorate string) ([]model.Office, error) {
	return s.officeRepo.ListAvailable(ctx, governorate)
}

func (s *VisaService) Office(ctx context.Context, id string) (*model.Office, error) {
	return s.officeRepo.GetByID(ctx, id)
}
