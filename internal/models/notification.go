package models

import (
	"encoding/json"
	"time"
)

type NotificationCategory string

const (
	NotificationCategoryInfo    NotificationCategory = "info"
	NotificationCategorySuccess NotificationCategory = "success"
	NotificationCategoryWarning NotificationCategory = "warning"
	NotificationCategoryError   NotificationCategory = "error"
)

func IsValidNotificationCategory(c NotificationCategory) bool {
	switch c {
	case NotificationCategoryInfo, NotificationCategorySuccess, NotificationCategoryWarning, NotificationCategoryError:
		return true
	}
	return false
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

func IsValidNotificationPriority(p NotificationPriority) bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh, NotificationPriorityUrgent:
		return true
	}
	return false
}

// Notification is the durable record of a fact addressed to exactly one user.
// Metadata is an opaque attachment consumed by the presentation layer for
// deep-linking; the dispatch path never inspects it.
type Notification struct {
	ID          string               `json:"id" db:"id"`
	RecipientID string               `json:"recipient_id" db:"recipient_id"`
	Title       string               `json:"title" db:"title"`
	Message     string               `json:"message" db:"message"`
	Category    NotificationCategory `json:"category" db:"category"`
	Priority    NotificationPriority `json:"priority" db:"priority"`
	IsRead      bool                 `json:"is_read" db:"is_read"`
	Metadata    json.RawMessage      `json:"metadata,omitempty" db:"metadata"`
	ActionURL   *string              `json:"action_url,omitempty" db:"action_url"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty" db:"expires_at"`
}
