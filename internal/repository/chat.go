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

type ChatRepository struct {
	db DBTX
}

func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) WithTx(tx pgx.Tx) *ChatRepository {
	return &ChatRepository{db: tx}
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	defer logger.DeferLogDuration("chatRepo.CreateMessage", time.Now())()
	err := r.db.QueryRow(ctx,
		`INSERT INTO chat_messages (id, visa_request_id, sender_id, sender_type, content, message_type, file_url, metadata, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, $9, $10)
		 RETURNING seq`,
		m.ID, m.VisaRequestID, m.SenderID, m.SenderType, m.Content, m.MessageType, m.FileURL, m.Metadata, m.IsRead, m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		return fmt.Errorf("chatRepo.CreateMessage: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetMessageByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	defer logger.DeferLogDuration("chatRepo.GetMessageByID", time.Now())()
	m := &model.ChatMessage{}
	err := r.db.QueryRow(ctx,
		`SELECT id, visa_request_id, sender_id, sender_type, content, message_type, COALESCE(file_url,''), metadata, is_read, seq, created_at
		 FROM chat_messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.VisaRequestID, &m.SenderID, &m.SenderType, &m.Content, &m.MessageType, &m.FileURL, &m.Metadata, &m.IsRead, &m.Seq, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetMessageByID: %w", err)
	}
	return m, nil
}

// GetThread returns the request's messages in non-decreasing timestamp
// order; seq is the insertion-order tiebreak for equal timestamps.
func (r *ChatRepository) GetThread(ctx context.Context, visaRequestID string) ([]model.ChatMessage, error) {
	defer logger.DeferLogDuration("chatRepo.GetThread", time.Now())()
	rows, err := r.db.Query(ctx,
		`SELECT id, visa_request_id, sender_id, sender_type, content, message_type, COALESCE(file_url,''), metadata, is_read, seq, created_at
		 FROM chat_messages WHERE visa_request_id = $1
		 ORDER BY created_at, seq`,
		visaRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetThread query: %w", err)
	}
	defer rows.Close()

	messages := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.VisaRequestID, &m.SenderID, &m.SenderType, &m.Content, &m.MessageType,
			&m.FileURL, &m.Metadata, &m.IsRead, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatRepo.GetThread scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.GetThread rows: %w", err)
	}
	return messages, nil
}

// MarkThreadRead flips is_read on every unread message in the thread not
// sent by the reader.
func (r *ChatRepository) MarkThreadRead(ctx context.Context, visaRequestID, readerID string) error {
	defer logger.DeferLogDuration("chatRepo.MarkThreadRead", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE chat_messages SET is_read = true
		 WHERE visa_request_id = $1 AND sender_id != $2 AND is_read = false`,
		visaRequestID, readerID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.MarkThreadRead: %w", err)
	}
	return nil
}

func (r *ChatRepository) MarkMessagesRead(ctx context.Context, visaRequestID, readerID string, messageIDs []string) error {
	defer logger.DeferLogDuration("chatRepo.MarkMessagesRead", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE chat_messages SET is_read = true
		 WHERE visa_request_id = $1 AND sender_id != $2 AND id = ANY($3)`,
		visaRequestID, readerID, messageIDs,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.MarkMessagesRead: %w", err)
	}
	return nil
}

// InsertThreadReadStatus adds a read receipt for every message in the thread
// not sent by the reader that lacks one. ON CONFLICT keeps repeat calls from
// duplicating rows.
func (r *ChatRepository) InsertThreadReadStatus(ctx context.Context, visaRequestID, readerID string, at time.Time) error {
	defer logger.DeferLogDuration("chatRepo.InsertThreadReadStatus", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO message_read_status (message_id, user_id, read_at)
		 SELECT id, $1, $2 FROM chat_messages
		 WHERE visa_request_id = $3 AND sender_id != $1
		 ON CONFLICT (message_id, user_id) DO NOTHING`,
		readerID, at, visaRequestID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.InsertThreadReadStatus: %w", err)
	}
	return nil
}

func (r *ChatRepository) InsertMessagesReadStatus(ctx context.Context, visaRequestID, readerID string, messageIDs []string, at time.Time) error {
	defer logger.DeferLogDuration("chatRepo.InsertMessagesReadStatus", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO message_read_status (message_id, user_id, read_at)
		 SELECT id, $1, $2 FROM chat_messages
		 WHERE visa_request_id = $3 AND sender_id != $1 AND id = ANY($4)
		 ON CONFLICT (message_id, user_id) DO NOTHING`,
		readerID, at, visaRequestID, messageIDs,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.InsertMessagesReadStatus: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListReadStatus(ctx context.Context, messageID string) ([]model.MessageReadStatus, error) {
	defer logger.DeferLogDuration("chatRepo.ListReadStatus", time.Now())()
	rows, err := r.db.Query(ctx,
		`SELECT message_id, user_id, read_at FROM message_read_status WHERE message_id = $1 ORDER BY read_at`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListReadStatus query: %w", err)
	}
	defer rows.Close()

	statuses := []model.MessageReadStatus{}
	for rows.Next() {
		var s model.MessageReadStatus
		if err := rows.Scan(&s.MessageID, &s.UserID, &s.ReadAt); err != nil {
			return nil, fmt.Errorf("chatRepo.ListReadStatus scan: %w", err)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.ListReadStatus rows: %w", err)
	}
	return statuses, nil
}

func (r *ChatRepository) CountReadStatus(ctx context.Context, visaRequestID, readerID string) (int, error) {
	defer logger.DeferLogDuration("chatRepo.CountReadStatus", time.Now())()
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM message_read_status s
		 JOIN chat_messages m ON m.id = s.message_id
		 WHERE m.visa_request_id = $1 AND s.user_id = $2`,
		visaRequestID, readerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("chatRepo.CountReadStatus: %w", err)
	}
	return n, nil
}
