package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	StatusPending  ComplaintStatus = "pending"
	StatusInReview ComplaintStatus = "in-review"
	StatusResolved ComplaintStatus = "resolved"
)

func (s ComplaintStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusResolved:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryFacility       Category = "facility"
	CategoryAdministration Category = "administration"
	CategoryHarassment     Category = "harassment"
	CategoryInfrastructure Category = "infrastructure"
	CategoryResult         Category = "result"
	CategoryOther          Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryAcademic, CategoryFacility, CategoryAdministration, CategoryHarassment,
		CategoryInfrastructure, CategoryResult, CategoryOther:
		return true
	}
	return false
}

type Faculty string

const (
	FacultyScience           Faculty = "science"
	FacultyTransport         Faculty = "transport"
	FacultyLaw               Faculty = "law"
	FacultyArt               Faculty = "art"
	FacultyEducation         Faculty = "education"
	FacultyManagementScience Faculty = "management science"
	FacultyOther             Faculty = "other"
)

// Faculties lists every faculty in display order.
var Faculties = []Faculty{
	FacultyScience,
	FacultyLaw,
	FacultyArt,
	FacultyEducation,
	FacultyManagementScience,
	FacultyTransport,
	FacultyOther,
}

func (f Faculty) IsValid() bool {
	for _, known := range Faculties {
		if f == known {
			return true
		}
	}
	return false
}

type ResolutionType string

const (
	ResolutionImmediateAction ResolutionType = "immediate action"
	ResolutionInvestigation   ResolutionType = "investigation"
	ResolutionPolicyChange    ResolutionType = "policy change"
	ResolutionOther           ResolutionType = "other"
)

func (r ResolutionType) IsValid() bool {
	switch r {
	case ResolutionImmediateAction, ResolutionInvestigation, ResolutionPolicyChange, ResolutionOther:
		return true
	}
	return false
}

// Complaint is the lifecycle record. ResolvedAt is non-nil iff Status is resolved.
type Complaint struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string          `gorm:"size:255;not null;index:idx_complaints_user_id" json:"user_id"`
	User           *User           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title          string          `gorm:"size:500;not null" json:"title"`
	Description    string          `gorm:"type:text;not null" json:"description"`
	Category       Category        `gorm:"size:30;not null;index:idx_complaints_category" json:"category"`
	Faculty        Faculty         `gorm:"size:50;not null;index:idx_complaints_faculty" json:"faculty"`
	Department     string          `gorm:"size:255;not null" json:"department"`
	ResolutionType ResolutionType  `gorm:"size:30;not null;default:other" json:"resolution_type"`
	Status         ComplaintStatus `gorm:"size:20;not null;default:pending;index:idx_complaints_status" json:"status"`
	Priority       Priority        `gorm:"size:20;not null;default:normal;index:idx_complaints_priority" json:"priority"`
	Sensitive      bool            `gorm:"not null;default:false" json:"sensitive"`
	SubmittedAt    time.Time       `gorm:"not null;index:idx_complaints_submitted_at" json:"submitted_at"`
	ResolvedAt     *time.Time      `json:"resolved_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
