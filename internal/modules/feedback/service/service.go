package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"anoa.com/campuscomplaint/internal/entity"
	complaintRepo "anoa.com/campuscomplaint/internal/modules/complaint/repository"
	feedbackDto "anoa.com/campuscomplaint/internal/modules/feedback/dto"
	feedbackRepo "anoa.com/campuscomplaint/internal/modules/feedback/repository"
	notification "anoa.com/campuscomplaint/internal/modules/notification/service"
	userRepo "anoa.com/campuscomplaint/internal/modules/user/repository"
	"anoa.com/campuscomplaint/pkg/apperror"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FeedbackService interface {
	Submit(ctx context.Context, actor entity.Actor, complaintID uuid.UUID, req feedbackDto.SubmitFeedbackRequest) (*entity.Feedback, error)
	Get(ctx context.Context, actor entity.Actor, complaintID uuid.UUID) (*entity.Feedback, error)
	List(ctx context.Context, actor entity.Actor, limit int) ([]entity.Feedback, error)
	Stats(ctx context.Context, actor entity.Actor) (*feedbackDto.FeedbackStats, error)
}

type feedbackService struct {
	feedbackRepo  feedbackRepo.FeedbackRepository
	complaintRepo complaintRepo.Repository
	userRepo      userRepo.UserRepository
	notifier      notification.NotificationService
	log           logrus.FieldLogger
}

func NewFeedbackService(
	feedbackRepo feedbackRepo.FeedbackRepository,
	complaintRepo complaintRepo.Repository,
	userRepo userRepo.UserRepository,
	notifier notification.NotificationService,
	log logrus.FieldLogger,
) FeedbackService {
	return &feedbackService{
		feedbackRepo:  feedbackRepo,
		complaintRepo: complaintRepo,
		userRepo:      userRepo,
		notifier:      notifier,
		log:           log,
	}
}

// Submit checks, in order: caller is a student, rating is in range, the
// complaint exists, it is resolved, the caller owns it, and it has no
// feedback yet. The first failing check decides the error.
func (s *feedbackService) Submit(ctx context.Context, actor entity.Actor, complaintID uuid.UUID, req feedbackDto.SubmitFeedbackRequest) (*entity.Feedback, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}
	if actor.Role != entity.RoleStudent {
		return nil, apperror.Unauthorized("only students can submit feedback")
	}
	if req.Rating < entity.MinRating || req.Rating > entity.MaxRating {
		return nil, apperror.InvalidInput(fmt.Sprintf("rating must be between %d and %d", entity.MinRating, entity.MaxRating))
	}

	complaint, err := s.complaintRepo.FindByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("complaint not found")
		}
		return nil, apperror.Dependency("failed to load complaint", err)
	}
	if complaint.Status != entity.StatusResolved {
		return nil, apperror.InvalidInput("feedback can only be submitted for resolved complaints")
	}
	if complaint.UserID != actor.UserID {
		return nil, apperror.Forbidden("you can only leave feedback on your own complaints")
	}

	_, err = s.feedbackRepo.FindByComplaintID(ctx, complaintID)
	switch {
	case err == nil:
		return nil, apperror.Conflict("feedback has already been submitted for this complaint")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperror.Dependency("failed to check existing feedback", err)
	}

	feedback := &entity.Feedback{
		ComplaintID: complaintID,
		UserID:      actor.UserID,
		Rating:      req.Rating,
	}
	if text := strings.TrimSpace(req.FeedbackText); text != "" {
		feedback.FeedbackText = &text
	}

	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		// lost a race with a concurrent submission
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("feedback has already been submitted for this complaint")
		}
		return nil, apperror.Dependency("failed to save feedback", err)
	}

	s.notifyAdmins(ctx, complaint, feedback)
	return feedback, nil
}

func (s *feedbackService) notifyAdmins(ctx context.Context, complaint *entity.Complaint, feedback *entity.Feedback) {
	admins, err := s.userRepo.FindIDsByRole(ctx, entity.RoleAdmin)
	if err != nil {
		s.log.WithError(err).WithField("complaint_id", complaint.ID).Warn("failed to load admins for feedback notification")
		return
	}

	s.notifier.NotifyAll(ctx, admins, notification.Message{
		ComplaintID: &complaint.ID,
		Title:       "New Feedback Received",
		Body:        fmt.Sprintf("Complaint %q received a %d/5 rating.", complaint.Title, feedback.Rating),
		Type:        entity.NotificationFeedbackRequest,
	})
}

func (s *feedbackService) Get(ctx context.Context, actor entity.Actor, complaintID uuid.UUID) (*entity.Feedback, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}

	complaint, err := s.complaintRepo.FindByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("complaint not found")
		}
		return nil, apperror.Dependency("failed to load complaint", err)
	}
	if actor.Role != entity.RoleAdmin && complaint.UserID != actor.UserID {
		return nil, apperror.Forbidden("you do not have access to this feedback")
	}

	feedback, err := s.feedbackRepo.FindByComplaintID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("no feedback for this complaint")
		}
		return nil, apperror.Dependency("failed to load feedback", err)
	}
	return feedback, nil
}

func (s *feedbackService) List(ctx context.Context, actor entity.Actor, limit int) ([]entity.Feedback, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	feedback, err := s.feedbackRepo.FindAll(ctx, limit)
	if err != nil {
		return nil, apperror.Dependency("failed to load feedback", err)
	}
	return feedback, nil
}

func (s *feedbackService) Stats(ctx context.Context, actor entity.Actor) (*feedbackDto.FeedbackStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	total, err := s.feedbackRepo.Count(ctx)
	if err != nil {
		return nil, apperror.Dependency("failed to count feedback", err)
	}
	avg, err := s.feedbackRepo.AverageRating(ctx)
	if err != nil {
		return nil, apperror.Dependency("failed to average ratings", err)
	}
	byRating, err := s.feedbackRepo.CountByRating(ctx)
	if err != nil {
		return nil, apperror.Dependency("failed to group ratings", err)
	}
	byFaculty, err := s.feedbackRepo.AverageByFaculty(ctx)
	if err != nil {
		return nil, apperror.Dependency("failed to group ratings by faculty", err)
	}
	resolved, err := s.feedbackRepo.CountResolvedComplaints(ctx)
	if err != nil {
		return nil, apperror.Dependency("failed to count resolved complaints", err)
	}

	stats := &feedbackDto.FeedbackStats{
		TotalFeedback:      total,
		AverageRating:      roundTo(avg, 1),
		RatingDistribution: make(map[int]int64, entity.MaxRating),
		TotalResolved:      resolved,
		FacultyRatings:     make([]feedbackDto.FacultyRating, 0, len(byFaculty)),
	}
	for r := entity.MinRating; r <= entity.MaxRating; r++ {
		stats.RatingDistribution[r] = 0
	}
	for _, row := range byRating {
		stats.RatingDistribution[row.Rating] = row.Count
	}
	if resolved > 0 {
		stats.ResponseRate = int(math.Round(float64(total) / float64(resolved) * 100))
	}
	for _, row := range byFaculty {
		stats.FacultyRatings = append(stats.FacultyRatings, feedbackDto.FacultyRating{
			Faculty:       row.Faculty,
			AverageRating: roundTo(row.AverageRating, 1),
			Count:         row.Count,
		})
	}

	return stats, nil
}

func requireAdmin(actor entity.Actor) error {
	if !actor.IsAuthenticated() {
		return apperror.ErrUnauthenticated
	}
	if actor.Role != entity.RoleAdmin {
		return apperror.Unauthorized("only administrators can view feedback")
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
