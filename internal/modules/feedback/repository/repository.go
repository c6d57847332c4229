package repository

import (
	"context"
	"database/sql"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RatingCount struct {
	Rating int
	Count  int64
}

type FacultyRating struct {
	Faculty       entity.Faculty
	AverageRating float64
	Count         int64
}

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entity.Feedback) error
	FindByComplaintID(ctx context.Context, complaintID uuid.UUID) (*entity.Feedback, error)
	FindAll(ctx context.Context, limit int) ([]entity.Feedback, error)
	Count(ctx context.Context) (int64, error)
	AverageRating(ctx context.Context) (float64, error)
	CountByRating(ctx context.Context) ([]RatingCount, error)
	AverageByFaculty(ctx context.Context) ([]FacultyRating, error)
	CountResolvedComplaints(ctx context.Context) (int64, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *entity.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *feedbackRepository) FindByComplaintID(ctx context.Context, complaintID uuid.UUID) (*entity.Feedback, error) {
	var feedback entity.Feedback
	if err := r.db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		First(&feedback).Error; err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) FindAll(ctx context.Context, limit int) ([]entity.Feedback, error) {
	var feedback []entity.Feedback
	query := r.db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&feedback).Error
	return feedback, err
}

func (r *feedbackRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Feedback{}).Count(&count).Error
	return count, err
}

func (r *feedbackRepository) AverageRating(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	if err := r.db.WithContext(ctx).Model(&entity.Feedback{}).
		Select("AVG(rating)").
		Row().
		Scan(&avg); err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

func (r *feedbackRepository) CountByRating(ctx context.Context) ([]RatingCount, error) {
	var rows []RatingCount
	err := r.db.WithContext(ctx).Model(&entity.Feedback{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Order("rating").
		Scan(&rows).Error
	return rows, err
}

func (r *feedbackRepository) AverageByFaculty(ctx context.Context) ([]FacultyRating, error) {
	var rows []FacultyRating
	err := r.db.WithContext(ctx).Model(&entity.Feedback{}).
		Select("complaints.faculty AS faculty, AVG(complaint_feedback.rating) AS average_rating, COUNT(*) AS count").
		Joins("JOIN complaints ON complaints.id = complaint_feedback.complaint_id").
		Group("complaints.faculty").
		Order("complaints.faculty").
		Scan(&rows).Error
	return rows, err
}

func (r *feedbackRepository) CountResolvedComplaints(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Complaint{}).
		Where("status = ?", entity.StatusResolved).
		Count(&count).Error
	return count, err
}
