package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/campuscomplaint/internal/entity"
	attachmentRepo "anoa.com/campuscomplaint/internal/modules/attachment/repository"
	attachmentService "anoa.com/campuscomplaint/internal/modules/attachment/service"
	auditRepo "anoa.com/campuscomplaint/internal/modules/audit/repository"
	complaintDto "anoa.com/campuscomplaint/internal/modules/complaint/dto"
	complaintRepo "anoa.com/campuscomplaint/internal/modules/complaint/repository"
	feedbackRepo "anoa.com/campuscomplaint/internal/modules/feedback/repository"
	notification "anoa.com/campuscomplaint/internal/modules/notification/service"
	search "anoa.com/campuscomplaint/internal/modules/search/service"
	userRepo "anoa.com/campuscomplaint/internal/modules/user/repository"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxTitleLength     = 100
	defaultSearchLimit = 20
)

// Service is the complaint lifecycle engine. Each mutation writes the
// complaint row and its audit entry in one transaction; notifications,
// search indexing and object storage calls happen outside it and never undo
// a committed change.
type Service interface {
	Submit(ctx context.Context, actor entity.Actor, req complaintDto.SubmitComplaintRequest) (*entity.Complaint, error)
	SetStatus(ctx context.Context, actor entity.Actor, id uuid.UUID, req complaintDto.UpdateStatusRequest) (*entity.Complaint, error)
	SetPriority(ctx context.Context, actor entity.Actor, id uuid.UUID, req complaintDto.UpdatePriorityRequest) (*entity.Complaint, error)
	SetSensitive(ctx context.Context, actor entity.Actor, id uuid.UUID, sensitive bool) (*entity.Complaint, error)
	Withdraw(ctx context.Context, actor entity.Actor, id uuid.UUID) error
	List(ctx context.Context, actor entity.Actor, query complaintDto.ListComplaintsQuery) ([]entity.Complaint, error)
	Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*complaintDto.ComplaintDetail, error)
	History(ctx context.Context, actor entity.Actor, id uuid.UUID) ([]entity.AuditEntry, error)
	Search(ctx context.Context, actor entity.Actor, query complaintDto.SearchQuery) ([]entity.Complaint, error)
}

type service struct {
	complaintRepo  complaintRepo.Repository
	auditRepo      auditRepo.AuditRepository
	attachmentRepo attachmentRepo.AttachmentRepository
	feedbackRepo   feedbackRepo.FeedbackRepository
	userRepo       userRepo.UserRepository
	notifier       notification.NotificationService
	attachments    attachmentService.AttachmentService
	index          search.ComplaintIndex
	cooldown       *ratelimiter.Cooldown
	policy         Policy
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewService(
	complaintRepo complaintRepo.Repository,
	auditRepo auditRepo.AuditRepository,
	attachmentRepo attachmentRepo.AttachmentRepository,
	feedbackRepo feedbackRepo.FeedbackRepository,
	userRepo userRepo.UserRepository,
	notifier notification.NotificationService,
	attachments attachmentService.AttachmentService,
	index search.ComplaintIndex,
	cooldown *ratelimiter.Cooldown,
	policy Policy,
	log logrus.FieldLogger,
) Service {
	return &service{
		complaintRepo:  complaintRepo,
		auditRepo:      auditRepo,
		attachmentRepo: attachmentRepo,
		feedbackRepo:   feedbackRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		attachments:    attachments,
		index:          index,
		cooldown:       cooldown,
		policy:         policy,
		log:            log,
		now:            time.Now,
	}
}

func (s *service) Submit(ctx context.Context, actor entity.Actor, req complaintDto.SubmitComplaintRequest) (*entity.Complaint, error) {
	if err := s.policy.Authorize(actor, ActionSubmit, nil); err != nil {
		return nil, err
	}
	if err := validateSubmission(&req); err != nil {
		return nil, err
	}
	objectIDs := uploadedObjectIDs(req)
	if err := s.attachments.VerifyPending(ctx, actor.UserID, objectIDs); err != nil {
		return nil, err
	}
	if err := s.cooldown.Acquire(ctx, actor.UserID); err != nil {
		var limited *ratelimiter.RateLimitError
		if errors.As(err, &limited) {
			return nil, err
		}
		s.log.WithError(err).WithField("user_id", actor.UserID).Warn("submission cooldown unavailable")
	}

	now := s.now()
	complaint := &entity.Complaint{
		UserID:         actor.UserID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Faculty:        req.Faculty,
		Department:     req.Department,
		ResolutionType: req.ResolutionType,
		Status:         entity.StatusPending,
		Priority:       entity.PriorityNormal,
		SubmittedAt:    now,
	}

	err := s.complaintRepo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.complaintRepo.WithTx(tx).Create(ctx, complaint); err != nil {
			return err
		}

		if err := s.auditRepo.WithTx(tx).Record(ctx, &entity.AuditEntry{
			ComplaintID:  complaint.ID,
			ChangedBy:    actor.UserID,
			FieldChanged: entity.FieldCreated,
			NewValue:     string(entity.StatusPending),
			Notes:        "Complaint created",
			ChangedAt:    now,
		}); err != nil {
			return err
		}

		attachments := s.attachmentRepo.WithTx(tx)
		for i, input := range req.Attachments {
			if field := input.MissingField(); field != "" {
				return apperror.InvalidInput(fmt.Sprintf("attachment %d is missing %s", i+1, field))
			}
			if err := attachments.Create(ctx, input.ToEntity(complaint.ID)); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if releaseErr := s.cooldown.Release(ctx, actor.UserID); releaseErr != nil {
			s.log.WithError(releaseErr).WithField("user_id", actor.UserID).Warn("failed to release submission cooldown")
		}
		// a duplicate object id is already referenced by a stored attachment
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.New(apperror.ErrConflict, "attachment is already used by another complaint", err)
		}
		if len(objectIDs) > 0 {
			removed := s.attachments.DeleteObjects(ctx, objectIDs)
			s.log.WithError(err).WithFields(logrus.Fields{
				"user_id": actor.UserID,
				"objects": len(objectIDs),
				"removed": removed,
			}).Warn("complaint submission aborted, cleaned up uploads")
		}
		return nil, storeError(err, "failed to submit complaint")
	}

	s.attachments.ReleasePending(ctx, objectIDs)
	s.notifyNewComplaint(ctx, complaint)
	s.indexComplaint(ctx, complaint)

	s.log.WithFields(logrus.Fields{
		"complaint_id": complaint.ID,
		"user_id":      actor.UserID,
	}).Info("complaint submitted")

	return complaint, nil
}

func (s *service) SetStatus(ctx context.Context, actor entity.Actor, id uuid.UUID, req complaintDto.UpdateStatusRequest) (*entity.Complaint, error) {
	if err := s.policy.Authorize(actor, ActionSetStatus, nil); err != nil {
		return nil, err
	}
	if !req.Status.IsValid() {
		return nil, apperror.InvalidInput(fmt.Sprintf("invalid status %q", req.Status))
	}

	var (
		complaint *entity.Complaint
		oldStatus entity.ComplaintStatus
	)
	err := s.complaintRepo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		repo := s.complaintRepo.WithTx(tx)

		complaint, err = repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, ActionSetStatus, complaint); err != nil {
			return err
		}

		now := s.now()
		oldStatus = complaint.Status
		fields := map[string]any{"status": req.Status}
		switch {
		case req.Status != entity.StatusResolved:
			fields["resolved_at"] = nil
			complaint.ResolvedAt = nil
		case oldStatus != entity.StatusResolved || complaint.ResolvedAt == nil:
			fields["resolved_at"] = now
			complaint.ResolvedAt = &now
		}
		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return err
		}
		complaint.Status = req.Status

		old := string(oldStatus)
		return s.auditRepo.WithTx(tx).Record(ctx, &entity.AuditEntry{
			ComplaintID:  id,
			ChangedBy:    actor.UserID,
			FieldChanged: entity.FieldStatus,
			OldValue:     &old,
			NewValue:     string(req.Status),
			Notes:        notesOr(req.Notes, fmt.Sprintf("Status changed from %s to %s", oldStatus, req.Status)),
			ChangedAt:    now,
		})
	})
	if err != nil {
		return nil, storeError(err, "failed to update complaint status")
	}

	s.notifyOwner(ctx, complaint, notification.Message{
		Title: "Complaint Status Updated",
		Body:  fmt.Sprintf("Your complaint %q status has been updated from %s to %s.", complaint.Title, oldStatus, req.Status),
		Type:  entity.NotificationStatusChange,
	})
	s.indexComplaint(ctx, complaint)

	return complaint, nil
}

func (s *service) SetPriority(ctx context.Context, actor entity.Actor, id uuid.UUID, req complaintDto.UpdatePriorityRequest) (*entity.Complaint, error) {
	if err := s.policy.Authorize(actor, ActionSetPriority, nil); err != nil {
		return nil, err
	}
	if !req.Priority.IsValid() {
		return nil, apperror.InvalidInput(fmt.Sprintf("invalid priority %q", req.Priority))
	}

	var (
		complaint   *entity.Complaint
		oldPriority entity.Priority
	)
	err := s.complaintRepo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		repo := s.complaintRepo.WithTx(tx)

		complaint, err = repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, ActionSetPriority, complaint); err != nil {
			return err
		}

		oldPriority = complaint.Priority
		if err := repo.UpdateFields(ctx, id, map[string]any{"priority": req.Priority}); err != nil {
			return err
		}
		complaint.Priority = req.Priority

		old := string(oldPriority)
		return s.auditRepo.WithTx(tx).Record(ctx, &entity.AuditEntry{
			ComplaintID:  id,
			ChangedBy:    actor.UserID,
			FieldChanged: entity.FieldPriority,
			OldValue:     &old,
			NewValue:     string(req.Priority),
			Notes:        notesOr(req.Notes, fmt.Sprintf("Priority changed from %s to %s", oldPriority, req.Priority)),
			ChangedAt:    s.now(),
		})
	})
	if err != nil {
		return nil, storeError(err, "failed to update complaint priority")
	}

	s.notifyOwner(ctx, complaint, notification.Message{
		Title: "Complaint Priority Updated",
		Body:  fmt.Sprintf("Your complaint %q priority has been updated from %s to %s.", complaint.Title, oldPriority, req.Priority),
		Type:  entity.NotificationPriorityChange,
	})
	s.indexComplaint(ctx, complaint)

	return complaint, nil
}

// SetSensitive flips the visibility flag. The flag is not part of the audit
// trail.
func (s *service) SetSensitive(ctx context.Context, actor entity.Actor, id uuid.UUID, sensitive bool) (*entity.Complaint, error) {
	if err := s.policy.Authorize(actor, ActionSetSensitive, nil); err != nil {
		return nil, err
	}

	complaint, err := s.complaintRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load complaint")
	}
	if err := s.complaintRepo.UpdateFields(ctx, id, map[string]any{"sensitive": sensitive}); err != nil {
		return nil, storeError(err, "failed to update complaint")
	}
	complaint.Sensitive = sensitive

	s.indexComplaint(ctx, complaint)
	return complaint, nil
}

func (s *service) Withdraw(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	if err := s.policy.Authorize(actor, ActionWithdraw, nil); err != nil {
		return err
	}

	complaint, err := s.complaintRepo.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "failed to load complaint")
	}
	if err := s.policy.Authorize(actor, ActionWithdraw, complaint); err != nil {
		return err
	}

	// External deletes stay outside the transaction; failures leave orphans
	// for manual reconciliation and do not block the withdrawal.
	attachments, err := s.attachmentRepo.FindByComplaintID(ctx, id)
	if err != nil {
		return storeError(err, "failed to load attachments")
	}
	if len(attachments) > 0 {
		objectIDs := make([]string, 0, len(attachments))
		for _, a := range attachments {
			objectIDs = append(objectIDs, a.ExternalObjectID)
		}
		if removed := s.attachments.DeleteObjects(ctx, objectIDs); removed < len(objectIDs) {
			s.log.WithFields(logrus.Fields{
				"complaint_id": id,
				"objects":      len(objectIDs),
				"removed":      removed,
			}).Warn("withdrawing complaint with orphaned attachment objects")
		}
	}

	err = s.complaintRepo.Transaction(ctx, func(tx *gorm.DB) error {
		deleted, err := s.complaintRepo.WithTx(tx).DeletePending(ctx, id, actor.UserID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return apperror.Conflict("complaint is no longer pending and cannot be withdrawn")
		}
		return nil
	})
	if err != nil {
		return storeError(err, "failed to withdraw complaint")
	}

	if s.index != nil {
		if err := s.index.DeleteComplaint(ctx, id.String()); err != nil {
			s.log.WithError(err).WithField("complaint_id", id).Warn("failed to remove complaint from search index")
		}
	}

	s.log.WithFields(logrus.Fields{
		"complaint_id": id,
		"user_id":      actor.UserID,
	}).Info("complaint withdrawn")
	return nil
}

func (s *service) List(ctx context.Context, actor entity.Actor, query complaintDto.ListComplaintsQuery) ([]entity.Complaint, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}

	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	filter.Scope = s.policy.ScopeFor(actor)

	complaints, err := s.complaintRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list complaints")
	}
	return complaints, nil
}

func (s *service) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*complaintDto.ComplaintDetail, error) {
	complaint, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	attachments, err := s.attachmentRepo.FindByComplaintID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load attachments")
	}
	history, err := s.auditRepo.History(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load complaint history")
	}
	feedback, err := s.feedbackRepo.FindByComplaintID(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(err, "failed to load feedback")
	}

	if attachments == nil {
		attachments = []entity.Attachment{}
	}
	return &complaintDto.ComplaintDetail{
		Complaint:   *complaint,
		Attachments: attachments,
		History:     history,
		Feedback:    feedback,
	}, nil
}

func (s *service) History(ctx context.Context, actor entity.Actor, id uuid.UUID) ([]entity.AuditEntry, error) {
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}

	history, err := s.auditRepo.History(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load complaint history")
	}
	return history, nil
}

func (s *service) Search(ctx context.Context, actor entity.Actor, query complaintDto.SearchQuery) ([]entity.Complaint, error) {
	if err := s.policy.Authorize(actor, ActionSearch, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query.Q) == "" {
		return nil, apperror.InvalidInput("search query is required")
	}
	if s.index == nil {
		return nil, apperror.Dependency("search is not available", nil)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.index.Search(ctx, query.Q, limit)
	if err != nil {
		return nil, apperror.Dependency("search failed", err)
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		if id, err := uuid.Parse(hit); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []entity.Complaint{}, nil
	}

	complaints, err := s.complaintRepo.FindAll(ctx, complaintRepo.Filter{
		Scope: s.policy.ScopeFor(actor),
		IDs:   ids,
	})
	if err != nil {
		return nil, storeError(err, "failed to load search results")
	}

	// keep the index's relevance order
	byID := make(map[uuid.UUID]entity.Complaint, len(complaints))
	for _, c := range complaints {
		byID[c.ID] = c
	}
	ordered := make([]entity.Complaint, 0, len(complaints))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (s *service) loadVisible(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Complaint, error) {
	if err := s.policy.Authorize(actor, ActionView, nil); err != nil {
		return nil, err
	}

	complaint, err := s.complaintRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load complaint")
	}
	if err := s.policy.Authorize(actor, ActionView, complaint); err != nil {
		return nil, err
	}
	return complaint, nil
}

func (s *service) notifyOwner(ctx context.Context, complaint *entity.Complaint, msg notification.Message) {
	msg.UserID = complaint.UserID
	msg.ComplaintID = &complaint.ID
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"complaint_id": complaint.ID,
			"user_id":      complaint.UserID,
			"type":         msg.Type,
		}).Warn("failed to notify complaint owner")
	}
}

func (s *service) notifyNewComplaint(ctx context.Context, complaint *entity.Complaint) {
	recipients, err := s.userRepo.FindIDsByRole(ctx, entity.RoleAdmin)
	if err != nil {
		s.log.WithError(err).WithField("complaint_id", complaint.ID).Warn("failed to load admins for notification")
	}

	if s.policy.DepartmentAdminTransitions {
		scoped, err := s.userRepo.FindDepartmentAdminIDs(ctx, complaint.Faculty, complaint.Department)
		if err != nil {
			s.log.WithError(err).WithField("complaint_id", complaint.ID).Warn("failed to load department admins for notification")
		}
		recipients = append(recipients, scoped...)
	}

	if len(recipients) == 0 {
		return
	}

	s.notifier.NotifyAll(ctx, recipients, notification.Message{
		ComplaintID: &complaint.ID,
		Title:       "New Complaint Submitted",
		Body:        fmt.Sprintf("A new %s complaint %q was submitted for %s, %s.", complaint.Category, complaint.Title, complaint.Faculty, complaint.Department),
		Type:        entity.NotificationNewComplaint,
	})
}

func (s *service) indexComplaint(ctx context.Context, complaint *entity.Complaint) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexComplaint(ctx, complaint); err != nil {
		s.log.WithError(err).WithField("complaint_id", complaint.ID).Warn("failed to index complaint")
	}
}

func validateSubmission(req *complaintDto.SubmitComplaintRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Department = strings.TrimSpace(req.Department)

	switch {
	case req.Title == "":
		return apperror.InvalidInput("title is required")
	case utf8.RuneCountInString(req.Title) > maxTitleLength:
		return apperror.InvalidInput(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	case req.Description == "":
		return apperror.InvalidInput("description is required")
	case !req.Category.IsValid():
		return apperror.InvalidInput(fmt.Sprintf("invalid category %q", req.Category))
	case !req.Faculty.IsValid():
		return apperror.InvalidInput(fmt.Sprintf("invalid faculty %q", req.Faculty))
	case req.Department == "":
		return apperror.InvalidInput("department is required")
	}

	if req.ResolutionType == "" {
		req.ResolutionType = entity.ResolutionOther
	}
	if !req.ResolutionType.IsValid() {
		return apperror.InvalidInput(fmt.Sprintf("invalid resolution type %q", req.ResolutionType))
	}
	return nil
}

func buildFilter(query complaintDto.ListComplaintsQuery) (complaintRepo.Filter, error) {
	filter := complaintRepo.Filter{
		Status:   entity.ComplaintStatus(query.Status),
		Priority: entity.Priority(query.Priority),
		Category: entity.Category(query.Category),
		Faculty:  entity.Faculty(query.Faculty),
		OrderBy:  query.OrderBy,
		Limit:    query.Limit,
	}

	switch {
	case filter.Status != "" && !filter.Status.IsValid():
		return filter, apperror.InvalidInput(fmt.Sprintf("invalid status filter %q", query.Status))
	case filter.Priority != "" && !filter.Priority.IsValid():
		return filter, apperror.InvalidInput(fmt.Sprintf("invalid priority filter %q", query.Priority))
	case filter.Category != "" && !filter.Category.IsValid():
		return filter, apperror.InvalidInput(fmt.Sprintf("invalid category filter %q", query.Category))
	case filter.Faculty != "" && !filter.Faculty.IsValid():
		return filter, apperror.InvalidInput(fmt.Sprintf("invalid faculty filter %q", query.Faculty))
	}

	if filter.OrderBy == "" {
		filter.OrderBy = complaintRepo.OrderSensitiveFirst
	}
	if !complaintRepo.IsValidOrder(filter.OrderBy) {
		return filter, apperror.InvalidInput(fmt.Sprintf("invalid order %q", query.OrderBy))
	}

	switch query.Sensitive {
	case "", "all":
	case "sensitive":
		sensitive := true
		filter.Sensitive = &sensitive
	case "regular":
		sensitive := false
		filter.Sensitive = &sensitive
	default:
		return filter, apperror.InvalidInput(fmt.Sprintf("invalid sensitive filter %q", query.Sensitive))
	}

	return filter, nil
}

func uploadedObjectIDs(req complaintDto.SubmitComplaintRequest) []string {
	ids := make([]string, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		if a.ExternalObjectID != "" {
			ids = append(ids, a.ExternalObjectID)
		}
	}
	return ids
}

func notesOr(notes, fallback string) string {
	if n := strings.TrimSpace(notes); n != "" {
		return n
	}
	return fallback
}

// storeError maps a repository or transaction error onto the service's
// error kinds. Errors that already carry a kind pass through.
func storeError(err error, message string) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, apperror.ErrUnauthenticated):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("complaint not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.New(apperror.ErrConflict, "complaint was modified concurrently", err)
	default:
		return apperror.Dependency(message, err)
	}
}
