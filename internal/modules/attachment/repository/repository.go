package repository

import (
	"context"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttachmentRepository interface {
	WithTx(tx *gorm.DB) AttachmentRepository
	Create(ctx context.Context, attachment *entity.Attachment) error
	FindByComplaintID(ctx context.Context, complaintID uuid.UUID) ([]entity.Attachment, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) WithTx(tx *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: tx}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) FindByComplaintID(ctx context.Context, complaintID uuid.UUID) ([]entity.Attachment, error) {
	var attachments []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at asc").
		Find(&attachments).Error
	return attachments, err
}
