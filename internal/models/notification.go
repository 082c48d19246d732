package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification is the in-app record of an alert having been raised.
type Notification struct {
	ID        string           `gorm:"primaryKey" json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	AlertID   string           `gorm:"index" json:"alert_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationTypeFor picks the display type for an alert of severity s.
func NotificationTypeFor(s Severity) NotificationType {
	if s.AtLeast(SeverityHigh) {
		return NotificationTypeError
	}
	if s.AtLeast(SeverityMedium) {
		return NotificationTypeWarning
	}
	return NotificationTypeInfo
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&LogSource{},
		&LogRecord{},
		&Analysis{},
		&Alert{},
		&Notification{},
	}
}
