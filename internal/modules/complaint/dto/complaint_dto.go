package dto

import (
	"anoa.com/campuscomplaint/internal/entity"
	attachmentDto "anoa.com/campuscomplaint/internal/modules/attachment/dto"
)

type SubmitComplaintRequest struct {
	Title          string                          `json:"title" binding:"required,min=1,max=100"`
	Description    string                          `json:"description" binding:"required"`
	Category       entity.Category                 `json:"category" binding:"required,oneof=academic facility administration harassment infrastructure result other"`
	Faculty        entity.Faculty                  `json:"faculty" binding:"required"`
	Department     string                          `json:"department" binding:"required,max=255"`
	ResolutionType entity.ResolutionType           `json:"resolution_type"`
	Attachments    []attachmentDto.AttachmentInput `json:"attachments"`
}

type UpdateStatusRequest struct {
	Status entity.ComplaintStatus `json:"status" binding:"required,oneof=pending in-review resolved"`
	Notes  string                 `json:"notes" binding:"max=1000"`
}

type UpdatePriorityRequest struct {
	Priority entity.Priority `json:"priority" binding:"required,oneof=low normal high"`
	Notes    string          `json:"notes" binding:"max=1000"`
}

type UpdateSensitiveRequest struct {
	Sensitive *bool `json:"sensitive" binding:"required"`
}

type ListComplaintsQuery struct {
	Status    string `form:"status"`
	Priority  string `form:"priority"`
	Category  string `form:"category"`
	Faculty   string `form:"faculty"`
	Sensitive string `form:"sensitive"`
	OrderBy   string `form:"order_by"`
	Limit     int    `form:"limit" binding:"min=0,max=200"`
}

type SearchQuery struct {
	Q     string `form:"q" binding:"required,max=200"`
	Limit int    `form:"limit" binding:"min=0,max=100"`
}

// ComplaintDetail is a complaint with everything hanging off it.
type ComplaintDetail struct {
	entity.Complaint
	Attachments []entity.Attachment `json:"attachments"`
	History     []entity.AuditEntry `json:"history"`
	Feedback    *entity.Feedback    `json:"feedback"`
}
