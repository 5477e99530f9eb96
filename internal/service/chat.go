package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

// ChatService ведёт переписку по визовой заявке: сообщения участников,
// системные сообщения, отметки о прочтении и рассылку уведомлений.
type ChatService struct {
	pool      *pgxpool.Pool
	visaRepo  *repository.VisaRepository
	chatRepo  *repository.ChatRepository
	notifRepo *repository.NotificationRepository
}

func NewChatService(
	pool *pgxpool.Pool,
	visaRepo *repository.VisaRepository,
	chatRepo *repository.ChatRepository,
	notifRepo *repository.NotificationRepository,
) *ChatService {
	return &ChatService{pool: pool, visaRepo: visaRepo, chatRepo: chatRepo, notifRepo: notifRepo}
}

// authorizeParticipant enforces the uniform rule: applicants act only on
// their own request, offices only on their assigned request, admins on any.
func authorizeParticipant(actor model.Identity, v *model.VisaRequest) error {
	switch actor.Role {
	case model.RoleApplicant:
		if v.ApplicantID != actor.ID {
			return ErrForbidden
		}
	case model.RoleOffice:
		if v.OfficeID == nil || *v.OfficeID != actor.ID {
			return ErrForbidden
		}
	case model.RoleAdmin:
		// admins act on any request
	default:
		return ErrForbidden
	}
	return nil
}

type SendMessageRequest struct {
	Content     string          `json:"content"`
	MessageType string          `json:"message_type"`
	FileURL     string          `json:"file_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Send posts an actor message to the request's thread and fans out a
// notification to every other participant present on the request.
func (s *ChatService) Send(ctx context.Context, actor model.Identity, visaRequestID string, req SendMessageRequest) (*model.ChatMessage, error) {
	if req.Content == "" || req.MessageType == "" {
		return nil, fmt.Errorf("%w: content and message_type are required", ErrValidation)
	}
	// payment/system сообщения создаются только внутренними вызовами
	if !model.ValidActorMessageType(req.MessageType) {
		return nil, fmt.Errorf("%w: invalid message type %q", ErrValidation, req.MessageType)
	}

	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(actor, v); err != nil {
		return nil, err
	}
	if v.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot send messages in a completed or rejected visa request", ErrInvalidState)
	}

	now := time.Now().UTC()
	msg := &model.ChatMessage{
		ID:            uuid.New().String(),
		VisaRequestID: v.ID,
		SenderID:      actor.ID,
		SenderType:    model.SenderType(actor.Role),
		Content:       req.Content,
		MessageType:   model.MessageType(req.MessageType),
		FileURL:       req.FileURL,
		Metadata:      req.Metadata,
		IsRead:        false,
		CreatedAt:     now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat.Send begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.chatRepo.WithTx(tx).CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	title := "New message"
	content := "New message in visa request #" + shortID(v.ID)
	if err := s.notifyParticipants(ctx, tx, v, actor.ID, title, content, model.NotificationMessage); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("chat.Send commit: %w", err)
	}
	return msg, nil
}

// SendSystem posts a machine message on behalf of an admin or the assigned
// office. The stored sender is the system sentinel, not the caller.
func (s *ChatService) SendSystem(ctx context.Context, actor model.Identity, visaRequestID, content string) (*model.ChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleOffice {
		return nil, fmt.Errorf("%w: only admins and offices can send system notifications", ErrForbidden)
	}

	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleOffice {
		if v.OfficeID == nil || *v.OfficeID != actor.ID {
			return nil, ErrForbidden
		}
	}
	if v.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot send messages in a completed or rejected visa request", ErrInvalidState)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat.SendSystem begin: %w", err)
	}
	defer tx.Rollback(ctx)

	msg, err := s.SystemMessageTx(ctx, tx, v, content, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("chat.SendSystem commit: %w", err)
	}
	return msg, nil
}

// SystemMessageTx inserts a system message and its notifications inside the
// caller's transaction. excludeUserID (the initiator) gets no notification.
// Lifecycle flows (payment verification, office assignment) call this to keep
// the chat row atomic with their own writes.
func (s *ChatService) SystemMessageTx(ctx context.Context, tx pgx.Tx, v *model.VisaRequest, content, excludeUserID string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		ID:            uuid.New().String(),
		VisaRequestID: v.ID,
		SenderID:      model.SystemSenderID,
		SenderType:    model.SenderSystem,
		Content:       content,
		MessageType:   model.MessageSystem,
		IsRead:        false,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.chatRepo.WithTx(tx).CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.notifyParticipants(ctx, tx, v, excludeUserID, "Visa Application Update", content, model.NotificationSystem); err != nil {
		return nil, err
	}
	return msg, nil
}

// notifyParticipants creates a notification for every participant present on
// the request except excludeUserID. The sender never gets its own fan-out.
func (s *ChatService) notifyParticipants(ctx context.Context, tx pgx.Tx, v *model.VisaRequest, excludeUserID, title, content string, typ model.NotificationType) error {
	recipients := []string{v.ApplicantID}
	if v.AdminID != nil {
		recipients = append(recipients, *v.AdminID)
	}
	if v.OfficeID != nil {
		recipients = append(recipients, *v.OfficeID)
	}
	repo := s.notifRepo.WithTx(tx)
	now := time.Now().UTC()
	for _, userID := range recipients {
		if userID == excludeUserID {
			continue
		}
		n := &model.Notification{
			ID:          uuid.New().String(),
			UserID:      userID,
			Title:       title,
			Content:     content,
			Type:        typ,
			ReferenceID: v.ID,
			CreatedAt:   now,
		}
		if err := repo.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// GetThread returns the ordered message thread to an authorized participant.
func (s *ChatService) GetThread(ctx context.Context, actor model.Identity, visaRequestID string) ([]model.ChatMessage, error) {
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(actor, v); err != nil {
		return nil, err
	}
	return s.chatRepo.GetThread(ctx, visaRequestID)
}

// MarkRead marks messages in the thread as read by the actor. With no ids
// the whole thread is covered. Repeat calls are no-ops: the is_read update
// filters on unread and receipt inserts are ON CONFLICT DO NOTHING.
func (s *ChatService) MarkRead(ctx context.Context, actor model.Identity, visaRequestID string, messageIDs []string) error {
	v, err := s.visaRepo.GetByID(ctx, visaRequestID)
	if err != nil {
		return err
	}
	if err := authorizeParticipant(actor, v); err != nil {
		return err
	}

	now := time.Now().UTC()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chat.MarkRead begin: %w", err)
	}
	defer tx.Rollback(ctx)

	repo := s.chatRepo.WithTx(tx)
	if len(messageIDs) == 0 {
		if err := repo.MarkThreadRead(ctx, visaRequestID, actor.ID); err != nil {
			return err
		}
		if err := repo.InsertThreadReadStatus(ctx, visaRequestID, actor.ID, now); err != nil {
			return err
		}
	} else {
		if err := repo.MarkMessagesRead(ctx, visaRequestID, actor.ID, messageIDs); err != nil {
			return err
		}
		if err := repo.InsertMessagesReadStatus(ctx, visaRequestID, actor.ID, messageIDs, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chat.MarkRead commit: %w", err)
	}
	return nil
}

// Notifications returns the actor's notifications, newest first.
func (s *ChatService) Notifications(ctx context.Context, actor model.Identity, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.notifRepo.ListByUser(ctx, actor.ID, limit)
}

// NotificationFeed — страница уведомлений вместе с общим числом
// непрочитанных (счётчик не ограничен limit).
type NotificationFeed struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

func (s *ChatService) Feed(ctx context.Context, actor model.Identity, limit int) (*NotificationFeed, error) {
	list, err := s.Notifications(ctx, actor, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifRepo.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &NotificationFeed{Notifications: list, UnreadCount: unread}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
