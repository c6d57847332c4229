package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository is the append-only trail of complaint field changes.
// Record must run on the same transaction handle as the mutation it describes.
type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	Record(ctx context.Context, entry *entity.AuditEntry) error
	History(ctx context.Context, complaintID uuid.UUID) ([]entity.AuditEntry, error)
	Latest(ctx context.Context, complaintID uuid.UUID, field entity.AuditField) (*entity.AuditEntry, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	return &auditRepository{db: tx}
}

func (r *auditRepository) Record(ctx context.Context, entry *entity.AuditEntry) error {
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now()
	}

	// changed_at never goes backwards within one complaint's trail
	var last entity.AuditEntry
	err := r.db.WithContext(ctx).
		Where("complaint_id = ?", entry.ComplaintID).
		Order("changed_at desc").
		Limit(1).
		Take(&last).Error
	switch {
	case err == nil:
		if entry.ChangedAt.Before(last.ChangedAt) {
			entry.ChangedAt = last.ChangedAt
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) History(ctx context.Context, complaintID uuid.UUID) ([]entity.AuditEntry, error) {
	var entries []entity.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("changed_at desc").
		Order("id desc").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(entries))
	history := entries[:0]
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		history = append(history, e)
	}
	return history, nil
}

func (r *auditRepository) Latest(ctx context.Context, complaintID uuid.UUID, field entity.AuditField) (*entity.AuditEntry, error) {
	var entry entity.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("complaint_id = ? AND field_changed = ?", complaintID, field).
		Order("changed_at desc").
		Order("id desc").
		Take(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
