package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditField string

const (
	FieldCreated  AuditField = "created"
	FieldStatus   AuditField = "status"
	FieldPriority AuditField = "priority"
)

func (f AuditField) IsValid() bool {
	switch f {
	case FieldCreated, FieldStatus, FieldPriority:
		return true
	}
	return false
}

// AuditEntry records one field transition on a complaint. Rows are only ever
// inserted; they disappear solely through the complaint's cascade delete.
type AuditEntry struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_complaint_changed,priority:1" json:"complaint_id"`
	Complaint    *Complaint `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ChangedBy    string     `gorm:"size:255;not null" json:"changed_by"`
	FieldChanged AuditField `gorm:"size:20;not null" json:"field_changed"`
	OldValue     *string    `gorm:"size:50" json:"old_value"`
	NewValue     string     `gorm:"size:50;not null" json:"new_value"`
	Notes        string     `gorm:"type:text" json:"notes"`
	ChangedAt    time.Time  `gorm:"not null;index:idx_audit_complaint_changed,priority:2" json:"changed_at"`
}

func (AuditEntry) TableName() string {
	return "complaint_audit_entries"
}

func (a *AuditEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}
