package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// ErrNotificationNotFound is returned when a notification lookup or
// update matches no row owned by the user.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepo persists user notifications.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification for the user.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, message string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, message) VALUES (?, ?)`,
		userID, message)
	return err
}

// ListByUser returns the user's most recent notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
	const q = `SELECT id, user_id, message, is_read, created_at
	           FROM notifications
	           WHERE user_id = ?
	           ORDER BY created_at DESC, id DESC
	           LIMIT 50`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkRead marks one of the user's notifications read. The user filter
// keeps one user from touching another's rows.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`,
		id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
