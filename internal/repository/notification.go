package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/model"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) WithTx(tx pgx.Tx) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	defer logger.DeferLogDuration("notifRepo.Create", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, content, type, reference_id, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		n.ID, n.UserID, n.Title, n.Content, n.Type, n.ReferenceID, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("notifRepo.Create: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	defer logger.DeferLogDuration("notifRepo.ListByUser", time.Now())()
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, title, content, type, reference_id, is_read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("notifRepo.ListByUser query: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Type, &n.ReferenceID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifRepo.ListByUser scan: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notifRepo.ListByUser rows: %w", err)
	}
	return notifications, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	defer logger.DeferLogDuration("notifRepo.CountUnread", time.Now())()
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("notifRepo.CountUnread: %w", err)
	}
	return n, nil
}
