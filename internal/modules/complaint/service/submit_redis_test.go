package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"anoa.com/campuscomplaint/internal/entity"
	attachmentDto "anoa.com/campuscomplaint/internal/modules/attachment/dto"
	attachmentRepo "anoa.com/campuscomplaint/internal/modules/attachment/repository"
	attachmentService "anoa.com/campuscomplaint/internal/modules/attachment/service"
	auditRepo "anoa.com/campuscomplaint/internal/modules/audit/repository"
	complaintRepo "anoa.com/campuscomplaint/internal/modules/complaint/repository"
	feedbackRepo "anoa.com/campuscomplaint/internal/modules/feedback/repository"
	notifRepo "anoa.com/campuscomplaint/internal/modules/notification/repository"
	notification "anoa.com/campuscomplaint/internal/modules/notification/service"
	userRepo "anoa.com/campuscomplaint/internal/modules/user/repository"
	"anoa.com/campuscomplaint/internal/testutil"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/ratelimiter"
	"anoa.com/campuscomplaint/pkg/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const submitCooldownKey = "rate_limit:user:student-1:submit_complaint"

// recordingStorage remembers every object it was asked to delete.
type recordingStorage struct {
	deleted []string
}

func (s *recordingStorage) Upload(context.Context, io.Reader, string, string) (*storage.StoredObject, error) {
	return nil, errors.New("uploads are not expected here")
}

func (s *recordingStorage) Delete(_ context.Context, objectID string) error {
	s.deleted = append(s.deleted, objectID)
	return nil
}

type redisHarness struct {
	svc     *service
	db      *gorm.DB
	mr      *miniredis.Miniredis
	store   *recordingStorage
	pending attachmentService.PendingUploads
}

// newRedisHarness wires the real attachment service and submission cooldown
// against an in-memory redis.
func newRedisHarness(t *testing.T, window time.Duration) *redisHarness {
	t.Helper()

	db := testutil.NewTestDB(t)
	log, _ := test.NewNullLogger()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	index := new(MockIndex)
	index.On("IndexComplaint", mock.Anything, mock.Anything).Return(nil).Maybe()

	store := &recordingStorage{}
	pending := attachmentService.NewRedisPendingUploads(client)
	attachments := attachmentService.NewAttachmentService(store, pending, "complaints", 24*time.Hour, log)

	svc := NewService(
		complaintRepo.NewRepository(db),
		auditRepo.NewAuditRepository(db),
		attachmentRepo.NewAttachmentRepository(db),
		feedbackRepo.NewFeedbackRepository(db),
		userRepo.NewUserRepository(db),
		notification.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, log),
		attachments,
		index,
		ratelimiter.NewCooldown(client, "submit_complaint", window),
		Policy{},
		log,
	).(*service)

	return &redisHarness{svc: svc, db: db, mr: mr, store: store, pending: pending}
}

func attachmentFor(objectID string) attachmentDto.AttachmentInput {
	return attachmentDto.AttachmentInput{
		ExternalObjectID: objectID,
		FileName:         "photo.jpg",
		FileType:         "image/jpeg",
		FileSize:         2048,
		URL:              "https://cdn.example/" + objectID,
	}
}

func TestSubmitRejectsAnotherStudentsUpload(t *testing.T) {
	h := newRedisHarness(t, 0)
	ctx := context.Background()
	testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	other := testutil.SeedUser(t, h.db, testutil.Student("student-2"))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))

	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{attachmentFor("complaints/obj-1")}

	_, err := h.svc.Submit(ctx, other, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	assert.Empty(t, h.store.deleted)
	assert.Zero(t, countRows(t, h.db, &entity.Complaint{}))

	owned, err := h.pending.OwnedBy(ctx, "student-1", []string{"complaints/obj-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"complaints/obj-1"}, owned)
}

func TestSubmitWithForeignAndInvalidAttachmentsDeletesNothing(t *testing.T) {
	h := newRedisHarness(t, 0)
	ctx := context.Background()
	testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	other := testutil.SeedUser(t, h.db, testutil.Student("student-2"))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))
	require.NoError(t, h.pending.Track(ctx, "student-2", "complaints/obj-2", time.Now()))

	broken := attachmentFor("complaints/obj-2")
	broken.URL = ""
	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{attachmentFor("complaints/obj-1"), broken}

	_, err := h.svc.Submit(ctx, other, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, h.store.deleted)
}

func TestSubmitInvalidOwnAttachmentDeletesOnlyOwnUploads(t *testing.T) {
	h := newRedisHarness(t, 0)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-2", time.Now()))

	broken := attachmentFor("complaints/obj-2")
	broken.URL = ""
	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{attachmentFor("complaints/obj-1"), broken}

	_, err := h.svc.Submit(ctx, student, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.ElementsMatch(t, []string{"complaints/obj-1", "complaints/obj-2"}, h.store.deleted)
	assert.Zero(t, countRows(t, h.db, &entity.Attachment{}))
}

func TestSubmittedUploadCannotBeReused(t *testing.T) {
	h := newRedisHarness(t, 0)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))

	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{attachmentFor("complaints/obj-1")}

	_, err := h.svc.Submit(ctx, student, req)
	require.NoError(t, err)

	owned, err := h.pending.OwnedBy(ctx, "student-1", []string{"complaints/obj-1"})
	require.NoError(t, err)
	assert.Empty(t, owned)

	_, err = h.svc.Submit(ctx, student, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, h.store.deleted)
	assert.Equal(t, int64(1), countRows(t, h.db, &entity.Attachment{}))
}

func TestSubmitDuplicateObjectKeepsStoredAttachment(t *testing.T) {
	h := newRedisHarness(t, 0)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))

	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{attachmentFor("complaints/obj-1")}
	_, err := h.svc.Submit(ctx, student, req)
	require.NoError(t, err)

	// a pending record that outlived its release still cannot attach the object twice
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))

	_, err = h.svc.Submit(ctx, student, req)
	require.ErrorIs(t, err, apperror.ErrConflict)
	assert.Empty(t, h.store.deleted)
	assert.Equal(t, int64(1), countRows(t, h.db, &entity.Complaint{}))
}

func TestSubmitCooldown(t *testing.T) {
	h := newRedisHarness(t, time.Minute)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))

	_, err := h.svc.Submit(ctx, student, validRequest())
	require.NoError(t, err)
	assert.True(t, h.mr.Exists(submitCooldownKey))

	_, err = h.svc.Submit(ctx, student, validRequest())
	require.ErrorIs(t, err, apperror.ErrRateLimited)
	assert.Equal(t, "rate_limited", apperror.KindOf(err))

	var limited *ratelimiter.RateLimitError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, time.Minute, limited.RetryAfter)
	assert.Equal(t, int64(1), countRows(t, h.db, &entity.Complaint{}))

	h.mr.FastForward(time.Minute)
	_, err = h.svc.Submit(ctx, student, validRequest())
	require.NoError(t, err)
}

func TestFailedSubmitReleasesCooldown(t *testing.T) {
	h := newRedisHarness(t, time.Minute)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	failAuditWrites(t, h.db)

	_, err := h.svc.Submit(ctx, student, validRequest())
	require.ErrorIs(t, err, apperror.ErrDependency)
	assert.False(t, h.mr.Exists(submitCooldownKey))
}

func TestRejectedAttachmentDoesNotTakeCooldown(t *testing.T) {
	h := newRedisHarness(t, time.Minute)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))

	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{attachmentFor("complaints/never-uploaded")}

	_, err := h.svc.Submit(ctx, student, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.False(t, h.mr.Exists(submitCooldownKey))
}

func TestInvalidAttachmentReleasesCooldown(t *testing.T) {
	h := newRedisHarness(t, time.Minute)
	ctx := context.Background()
	student := testutil.SeedUser(t, h.db, testutil.Student("student-1"))
	require.NoError(t, h.pending.Track(ctx, "student-1", "complaints/obj-1", time.Now()))

	broken := attachmentFor("complaints/obj-1")
	broken.FileName = ""
	req := validRequest()
	req.Attachments = []attachmentDto.AttachmentInput{broken}

	_, err := h.svc.Submit(ctx, student, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.False(t, h.mr.Exists(submitCooldownKey))
	assert.Equal(t, []string{"complaints/obj-1"}, h.store.deleted)

	_, err = h.svc.Submit(ctx, student, validRequest())
	require.NoError(t, err)
}
