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

// PaymentService is the payment subledger. Two capture paths feed it:
// a screenshot-only upload (fixed platform fee, no reference) and a
// reference+screenshot submission. Verification is admin-only and is the
// only payment operation that moves the request's status.
type PaymentService struct {
	pool     *pgxpool.Pool
	visaRepo *repository.VisaRepository
	payRepo  *repository.PaymentRepository
	chatRepo *repository.ChatRepository
	chat     *ChatService

	visaFee float64
}

func NewPaymentService(
	pool *pgxpool.Pool,
	visaRepo *repository.VisaRepository,
	payRepo *repository.PaymentRepository,
	chatRepo *repository.ChatRepository,
	chat *ChatService,
	visaFee float64,
) *PaymentService {
	return &PaymentService{
		pool: pool, visaRepo: visaRepo, payRepo: payRepo, chatRepo: chatRepo, chat: chat, visaFee: visaFee,
	}
}

// SubmitScreenshot is capture path 1: the applicant uploads a receipt
// screenshot without a reference number. One transaction sets the screenshot
// and paymentPending status on the request, opens a pending subledger entry
// at the platform fee, and drops a payment-type message in the chat. Nothing
// is verified automatically.
func (s *PaymentService) SubmitScreenshot(ctx context.Context, actor model.Identity, visaRequestID, screenshotURL string) (*model.PaymentLog, error) {
	if screenshotURL == "" {
		return nil, fmt.Errorf("%w: payment screenshot URL is required", ErrValidation)
	}
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleApplicant || v.ApplicantID != actor.ID {
		return nil, ErrForbidden
	}
	if v.Status.Terminal() {
		return nil, fmt.Errorf("%w: request is already %s", ErrInvalidState, v.Status)
	}

	now := time.Now().UTC()
	log := &model.PaymentLog{
		ID:            uuid.New().String(),
		VisaRequestID: visaRequestID,
		Amount:        s.visaFee,
		Status:        model.PaymentPending,
		ScreenshotURL: screenshotURL,
		CreatedAt:     now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment.SubmitScreenshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.visaRepo.WithTx(tx).SetPaymentScreenshot(ctx, visaRequestID, screenshotURL, model.StatusPaymentPending, now); err != nil {
		return nil, err
	}
	if err := s.payRepo.WithTx(tx).Create(ctx, log); err != nil {
		return nil, err
	}
	msg := &model.ChatMessage{
		ID:            uuid.New().String(),
		VisaRequestID: visaRequestID,
		SenderID:      actor.ID,
		SenderType:    model.SenderApplicant,
		Content:       fmt.Sprintf("Payment receipt of %.0f uploaded, awaiting verification", s.visaFee),
		MessageType:   model.MessagePayment,
		FileURL:       screenshotURL,
		CreatedAt:     now,
	}
	if err := s.chatRepo.WithTx(tx).CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("payment.SubmitScreenshot commit: %w", err)
	}
	log.UpdatedAt = now
	return log, nil
}

type SubmitPaymentRequest struct {
	ReferenceNumber string `json:"reference_number"`
	ScreenshotURL   string `json:"screenshot_url"`
}

// Submit is capture path 2: reference plus screenshot while the request is
// waiting for payment. Opens a pending subledger entry and stores the
// submission on the request; the status stays paymentPending until an admin
// verifies.
func (s *PaymentService) Submit(ctx context.Context, actor model.Identity, visaRequestID string, req SubmitPaymentRequest) (*model.PaymentLog, error) {
	if req.ReferenceNumber == "" || req.ScreenshotURL == "" {
		return nil, fmt.Errorf("%w: reference number and screenshot URL are required", ErrValidation)
	}
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleApplicant || v.ApplicantID != actor.ID {
		return nil, ErrForbidden
	}
	if v.Status != model.StatusPaymentPending {
		return nil, fmt.Errorf("%w: visa request is not waiting for payment", ErrInvalidState)
	}

	now := time.Now().UTC()
	log := &model.PaymentLog{
		ID:              uuid.New().String(),
		VisaRequestID:   visaRequestID,
		Amount:          v.PaymentAmount,
		Status:          model.PaymentPending,
		ReferenceNumber: req.ReferenceNumber,
		ScreenshotURL:   req.ScreenshotURL,
		CreatedAt:       now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment.Submit begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.payRepo.WithTx(tx).Create(ctx, log); err != nil {
		return nil, err
	}
	if err := s.visaRepo.WithTx(tx).SetPaymentSubmission(ctx, visaRequestID, req.ReferenceNumber, req.ScreenshotURL, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("payment.Submit commit: %w", err)
	}
	log.UpdatedAt = now
	return log, nil
}

type ReviewPaymentRequest struct {
	Action string `json:"action"` // verify | reject
	Note   string `json:"note,omitempty"`
}

// Review settles the pending submission. Verify moves the request to
// paymentVerified and stamps payment_verified_at; reject only marks the log,
// the request keeps waiting for a new submission. The asymmetry is
// deliberate.
func (s *PaymentService) Review(ctx context.Context, actor model.Identity, visaRequestID string, req ReviewPaymentRequest) error {
	if actor.Role != model.RoleAdmin {
		return fmt.Errorf("%w: only admins can review payments", ErrForbidden)
	}
	if req.Action != "verify" && req.Action != "reject" {
		return fmt.Errorf("%w: invalid action %q", ErrValidation, req.Action)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("payment.Review begin: %w", err)
	}
	defer tx.Rollback(ctx)

	visaTx := s.visaRepo.WithTx(tx)
	payTx := s.payRepo.WithTx(tx)

	v, err := visaTx.GetByIDForUpdate(ctx, visaRequestID)
	if err != nil {
		return err
	}
	pending, err := payTx.HasPending(ctx, visaRequestID)
	if err != nil {
		return err
	}
	if !pending {
		return fmt.Errorf("%w: no pending payment submission", ErrInvalidState)
	}

	now := time.Now().UTC()
	if req.Action == "verify" {
		if err := visaTx.MarkPaymentVerified(ctx, visaRequestID, now); err != nil {
			return err
		}
		if err := payTx.ResolvePending(ctx, visaRequestID, model.PaymentVerified, actor.ID, req.Note, now); err != nil {
			return err
		}
		if _, err := s.chat.SystemMessageTx(ctx, tx, v, "Payment has been verified and the receipt accepted", actor.ID); err != nil {
			return err
		}
	} else {
		// отклонение не трогает статус заявки
		if err := payTx.ResolvePending(ctx, visaRequestID, model.PaymentRejected, actor.ID, req.Note, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payment.Review commit: %w", err)
	}
	return nil
}

// Details returns the latest payment log for participants of the request.
func (s *PaymentService) Details(ctx context.Context, actor model.Identity, visaRequestID string) (*model.PaymentLog, error) {
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(actor, v); err != nil {
		return nil, err
	}
	return s.payRepo.GetLatest(ctx, visaRequestID)
}

// Statistics is the admin aggregate over the whole subledger.
func (s *PaymentService) Statistics(ctx context.Context, actor model.Identity) (*model.PaymentStatistics, error) {
	if actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins can view payment statistics", ErrForbidden)
	}
	return s.payRepo.GetStatistics(ctx)
}
