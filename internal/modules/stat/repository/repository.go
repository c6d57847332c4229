package repository

import (
	"context"
	"time"

	"anoa.com/campuscomplaint/internal/entity"
	complaintRepo "anoa.com/campuscomplaint/internal/modules/complaint/repository"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status entity.ComplaintStatus
	Count  int64
}

type FacultyCount struct {
	Faculty entity.Faculty
	Count   int64
}

type TimelinePoint struct {
	CreatedAt time.Time
	Status    entity.ComplaintStatus
}

// StatRepository runs the read-only aggregate queries behind the dashboards.
type StatRepository interface {
	CountByStatus(ctx context.Context, scope complaintRepo.Scope) ([]StatusCount, error)
	CountByFaculty(ctx context.Context, scope complaintRepo.Scope) ([]FacultyCount, error)
	Timeline(ctx context.Context, scope complaintRepo.Scope, since time.Time) ([]TimelinePoint, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) complaints(ctx context.Context, scope complaintRepo.Scope) *gorm.DB {
	return scope.Apply(r.db.WithContext(ctx).Model(&entity.Complaint{}))
}

func (r *statRepository) CountByStatus(ctx context.Context, scope complaintRepo.Scope) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.complaints(ctx, scope).
		Select("complaints.status AS status, COUNT(*) AS count").
		Group("complaints.status").
		Scan(&rows).Error
	return rows, err
}

func (r *statRepository) CountByFaculty(ctx context.Context, scope complaintRepo.Scope) ([]FacultyCount, error) {
	var rows []FacultyCount
	err := r.complaints(ctx, scope).
		Select("complaints.faculty AS faculty, COUNT(*) AS count").
		Group("complaints.faculty").
		Scan(&rows).Error
	return rows, err
}

// Timeline returns creation time and current status of every complaint
// created at or after since; bucketing happens in the service so the query
// stays portable across database engines.
func (r *statRepository) Timeline(ctx context.Context, scope complaintRepo.Scope, since time.Time) ([]TimelinePoint, error) {
	var rows []TimelinePoint
	err := r.complaints(ctx, scope).
		Select("complaints.created_at AS created_at, complaints.status AS status").
		Where("complaints.created_at >= ?", since).
		Order("complaints.created_at").
		Scan(&rows).Error
	return rows, err
}
