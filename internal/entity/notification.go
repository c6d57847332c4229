package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationStatusChange    NotificationType = "status_change"
	NotificationPriorityChange  NotificationType = "priority_change"
	NotificationNewComplaint    NotificationType = "new_complaint"
	NotificationFeedbackRequest NotificationType = "feedback_request"
	NotificationSystem          NotificationType = "system"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationStatusChange, NotificationPriorityChange, NotificationNewComplaint,
		NotificationFeedbackRequest, NotificationSystem:
		return true
	}
	return false
}

type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string           `gorm:"size:255;not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	User        *User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ComplaintID *uuid.UUID       `gorm:"type:uuid;index" json:"complaint_id,omitempty"`
	Complaint   *Complaint       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Type        NotificationType `gorm:"size:30;not null;default:system" json:"type"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time        `gorm:"autoCreateTime;index:idx_notifications_user_created,priority:2" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
