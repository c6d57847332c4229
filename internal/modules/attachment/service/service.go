package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"anoa.com/campuscomplaint/internal/modules/attachment/dto"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/storage"
	"github.com/sirupsen/logrus"
)

const MaxUploadSize = 10 << 20

type AttachmentService interface {
	UploadAttachment(ctx context.Context, userID string, file *multipart.FileHeader) (*dto.UploadAttachmentResponse, error)
	VerifyPending(ctx context.Context, userID string, objectIDs []string) error
	DeleteObjects(ctx context.Context, objectIDs []string) int
	ReleasePending(ctx context.Context, objectIDs []string)
	CleanupOrphanUploads(ctx context.Context) (int, error)
}

type attachmentService struct {
	fileStorage storage.ObjectStorage
	pending     PendingUploads
	folder      string
	ttl         time.Duration
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewAttachmentService(fileStorage storage.ObjectStorage, pending PendingUploads, folder string, ttl time.Duration, log logrus.FieldLogger) AttachmentService {
	return &attachmentService{
		fileStorage: fileStorage,
		pending:     pending,
		folder:      folder,
		ttl:         ttl,
		log:         log,
		now:         time.Now,
	}
}

func (s *attachmentService) UploadAttachment(ctx context.Context, userID string, file *multipart.FileHeader) (*dto.UploadAttachmentResponse, error) {
	if s.fileStorage == nil {
		return nil, apperror.Dependency("attachment storage is not configured", nil)
	}
	if file.Size > MaxUploadSize {
		return nil, apperror.InvalidInput("file must be 10MB or smaller")
	}

	f, err := file.Open()
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidInput, "could not read uploaded file", err)
	}
	defer f.Close()

	obj, err := s.fileStorage.Upload(ctx, f, s.folder, file.Filename)
	if err != nil {
		return nil, apperror.Dependency("failed to upload file", err)
	}

	if s.pending != nil {
		if err := s.pending.Track(ctx, userID, obj.ObjectID, s.now()); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"object_id": obj.ObjectID,
				"user_id":   userID,
			}).Warn("upload will not be swept if left unused")
		}
	}

	size := obj.FileSize
	if size == 0 {
		size = file.Size
	}
	fileType := file.Header.Get("Content-Type")
	if fileType == "" {
		fileType = obj.FileType
	}

	return &dto.UploadAttachmentResponse{
		ExternalObjectID: obj.ObjectID,
		FileName:         file.Filename,
		FileType:         fileType,
		FileSize:         size,
		URL:              obj.URL,
	}, nil
}

// VerifyPending checks that every object is an upload of userID that no
// complaint references yet.
func (s *attachmentService) VerifyPending(ctx context.Context, userID string, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	if s.pending == nil {
		return apperror.Dependency("attachments cannot be verified right now", nil)
	}

	seen := make(map[string]struct{}, len(objectIDs))
	for _, id := range objectIDs {
		if _, dup := seen[id]; dup {
			return apperror.InvalidInput(fmt.Sprintf("attachment %s is listed twice", id))
		}
		seen[id] = struct{}{}
	}

	owned, err := s.pending.OwnedBy(ctx, userID, objectIDs)
	if err != nil {
		return apperror.Dependency("failed to verify attachments", err)
	}
	ownedSet := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}
	for _, id := range objectIDs {
		if _, ok := ownedSet[id]; !ok {
			s.log.WithFields(logrus.Fields{
				"object_id": id,
				"user_id":   userID,
			}).Warn("rejected attachment that is not a pending upload of the caller")
			return apperror.InvalidInput(fmt.Sprintf("attachment %s is not one of your uploads", id))
		}
	}
	return nil
}

// DeleteObjects removes objects from the external store, logging each
// failure, and reports how many were removed. Objects it could not remove are
// left for manual reconciliation.
func (s *attachmentService) DeleteObjects(ctx context.Context, objectIDs []string) int {
	if s.fileStorage == nil {
		if len(objectIDs) > 0 {
			s.log.WithField("objects", objectIDs).Warn("attachment storage is not configured, objects left in place")
		}
		return 0
	}

	deleted := 0
	for _, id := range objectIDs {
		if err := s.fileStorage.Delete(ctx, id); err != nil {
			s.log.WithError(err).WithField("object_id", id).Error("failed to delete attachment object")
			continue
		}
		deleted++
	}
	return deleted
}

// ReleasePending marks uploads as referenced so the sweeper leaves them alone.
func (s *attachmentService) ReleasePending(ctx context.Context, objectIDs []string) {
	if s.pending == nil || len(objectIDs) == 0 {
		return
	}
	if err := s.pending.Release(ctx, objectIDs...); err != nil {
		s.log.WithError(err).WithField("objects", objectIDs).Warn("failed to release pending uploads")
	}
}

// CleanupOrphanUploads deletes uploads nobody attached to a complaint within the TTL.
func (s *attachmentService) CleanupOrphanUploads(ctx context.Context) (int, error) {
	if s.pending == nil {
		return 0, nil
	}

	cutoff := s.now().Add(-s.ttl)
	orphans, err := s.pending.Expired(ctx, cutoff)
	if err != nil {
		return 0, apperror.Dependency("failed to list orphan uploads", err)
	}

	removed := make([]string, 0, len(orphans))
	for _, id := range orphans {
		if s.fileStorage != nil {
			if err := s.fileStorage.Delete(ctx, id); err != nil {
				// stays pending, next run retries it
				s.log.WithError(err).WithField("object_id", id).Warn("failed to delete orphan upload")
				continue
			}
		}
		removed = append(removed, id)
	}

	if err := s.pending.Release(ctx, removed...); err != nil {
		s.log.WithError(err).Warn("failed to clear swept uploads")
	}

	if len(removed) > 0 {
		s.log.WithField("count", len(removed)).Info("orphan uploads removed")
	}
	return len(removed), nil
}
