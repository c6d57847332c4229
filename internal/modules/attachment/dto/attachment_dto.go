package dto

import (
	"strings"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/google/uuid"
)

// AttachmentInput is the metadata of an already uploaded object that a new
// complaint should reference.
type AttachmentInput struct {
	ExternalObjectID string `json:"external_object_id" binding:"required,max=255"`
	FileName         string `json:"file_name" binding:"required,max=255"`
	FileType         string `json:"file_type" binding:"required,max=100"`
	FileSize         int64  `json:"file_size" binding:"required,min=1"`
	URL              string `json:"url" binding:"required"`
}

// MissingField names the first required field that is empty, or "" when
// the input is complete.
func (a AttachmentInput) MissingField() string {
	switch {
	case strings.TrimSpace(a.ExternalObjectID) == "":
		return "external_object_id"
	case strings.TrimSpace(a.FileName) == "":
		return "file_name"
	case strings.TrimSpace(a.FileType) == "":
		return "file_type"
	case a.FileSize <= 0:
		return "file_size"
	case strings.TrimSpace(a.URL) == "":
		return "url"
	}
	return ""
}

func (a AttachmentInput) ToEntity(complaintID uuid.UUID) *entity.Attachment {
	return &entity.Attachment{
		ComplaintID:      complaintID,
		ExternalObjectID: a.ExternalObjectID,
		FileName:         a.FileName,
		FileType:         a.FileType,
		FileSize:         a.FileSize,
		URL:              a.URL,
	}
}

type UploadAttachmentResponse struct {
	ExternalObjectID string `json:"external_object_id"`
	FileName         string `json:"file_name"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
	URL              string `json:"url"`
}
