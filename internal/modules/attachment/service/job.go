package service

import "context"

const OrphanCleanupJobName = "orphan-upload-cleanup"

// OrphanCleanupJob runs CleanupOrphanUploads on a schedule.
type OrphanCleanupJob struct {
	service  AttachmentService
	schedule string
}

func NewOrphanCleanupJob(service AttachmentService, schedule string) *OrphanCleanupJob {
	return &OrphanCleanupJob{service: service, schedule: schedule}
}

func (j *OrphanCleanupJob) Name() string     { return OrphanCleanupJobName }
func (j *OrphanCleanupJob) Schedule() string { return j.schedule }

func (j *OrphanCleanupJob) Run(ctx context.Context) error {
	_, err := j.service.CleanupOrphanUploads(ctx)
	return err
}
