package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is the single rating a student leaves on their resolved complaint.
type Feedback struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_complaint" json:"complaint_id"`
	Complaint    *Complaint `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID       string     `gorm:"size:255;not null;index" json:"user_id"`
	Rating       int        `gorm:"not null;check:chk_feedback_rating,rating >= 1 AND rating <= 5" json:"rating"`
	FeedbackText *string    `gorm:"type:text" json:"feedback_text,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Feedback) TableName() string {
	return "complaint_feedback"
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID, err = uuid.NewV7()
	}
	return
}
