package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is the metadata row for a file held by the external object store.
type Attachment struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"complaint_id"`
	Complaint        *Complaint `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ExternalObjectID string     `gorm:"size:255;not null;uniqueIndex" json:"external_object_id"`
	FileName         string     `gorm:"size:255;not null" json:"file_name"`
	FileType         string     `gorm:"size:100;not null" json:"file_type"`
	FileSize         int64      `gorm:"not null" json:"file_size"`
	URL              string     `gorm:"type:text;not null" json:"url"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Attachment) TableName() string {
	return "complaint_attachments"
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}
