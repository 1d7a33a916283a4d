package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sitewatch/sitewatch-api/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListActive(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
	ClearAll(ctx context.Context, recipientID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type notificationRepository struct {
	db *sql.DB
}

type CreateNotificationParams struct {
	RecipientID string
	Title       string
	Message     string
	Category    models.NotificationCategory
	Priority    models.NotificationPriority
	Metadata    map[string]interface{}
	ActionURL   *string
	ExpiresAt   *time.Time
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = "id, recipient_id, title, message, category, priority, is_read, metadata, action_url, created_at, expires_at"

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, title, message, category, priority, metadata, action_url, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + notificationColumns

	var metadata interface{}
	if len(params.Metadata) > 0 {
		bytes, err := json.Marshal(params.Metadata)
		if err != nil {
			return models.Notification{}, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = bytes
	}

	var actionURL interface{}
	if params.ActionURL != nil && strings.TrimSpace(*params.ActionURL) != "" {
		actionURL = strings.TrimSpace(*params.ActionURL)
	}

	var expiresAt interface{}
	if params.ExpiresAt != nil {
		expiresAt = *params.ExpiresAt
	}

	row := r.db.QueryRowContext(ctx, query,
		params.RecipientID, params.Title, params.Message, params.Category, params.Priority, metadata, actionURL, expiresAt)
	return scanNotification(row)
}

func (r *notificationRepository) ListActive(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(recipientID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1 AND is_read = FALSE AND (expires_at IS NULL OR expires_at > NOW())
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(recipientID)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead is idempotent: re-marking an already-read notification succeeds and
// returns the unchanged record.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2
		RETURNING ` + notificationColumns
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(recipientID))
	return scanNotification(row)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	const query = `
		UPDATE notifications
		SET is_read = TRUE
		WHERE recipient_id = $1 AND is_read = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, strings.TrimSpace(recipientID))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes a single notification scoped to its recipient. A mismatched
// recipient yields sql.ErrNoRows and leaves the record in place.
func (r *notificationRepository) Delete(ctx context.Context, recipientID, notificationID string) error {
	const query = `
		DELETE FROM notifications
		WHERE id = $1 AND recipient_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(recipientID))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) ClearAll(ctx context.Context, recipientID string) (int64, error) {
	const query = `DELETE FROM notifications WHERE recipient_id = $1`
	result, err := r.db.ExecContext(ctx, query, strings.TrimSpace(recipientID))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif       models.Notification
		metadataRaw []byte
		actionURL   sql.NullString
		expiresAt   sql.NullTime
	)

	if err := scanner.Scan(
		&notif.ID,
		&notif.RecipientID,
		&notif.Title,
		&notif.Message,
		&notif.Category,
		&notif.Priority,
		&notif.IsRead,
		&metadataRaw,
		&actionURL,
		&notif.CreatedAt,
		&expiresAt,
	); err != nil {
		return models.Notification{}, err
	}

	if len(metadataRaw) > 0 {
		notif.Metadata = metadataRaw
	}
	if actionURL.Valid {
		val := actionURL.String
		notif.ActionURL = &val
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		notif.ExpiresAt = &t
	}

	return notif, nil
}
