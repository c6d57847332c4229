package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a unit of background maintenance work.
type Job interface {
	// Name identifies the job in logs and for on-demand runs.
	Name() string

	// Schedule is a cron expression or descriptor such as "@every 12h".
	// An empty schedule registers the job for on-demand runs only.
	Schedule() string

	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	log     logrus.FieldLogger
	timeout time.Duration
}

func New(log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    make([]Job, 0),
		log:     log,
		timeout: 10 * time.Minute,
	}
}

// Register adds a job and schedules it when it has a schedule.
func (s *Scheduler) Register(job Job) error {
	schedule := job.Schedule()
	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, func() { s.execute(job) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
		}
		s.log.WithFields(logrus.Fields{"job": job.Name(), "schedule": schedule}).Info("job scheduled")
	} else {
		s.log.WithField("job", job.Name()).Info("job registered for on-demand runs")
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stopped before running jobs finished")
	}
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("job %q is not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

func (s *Scheduler) execute(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry := s.log.WithField("job", job.Name())
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.WithField("duration", time.Since(start).String()).Info("job completed")
}
