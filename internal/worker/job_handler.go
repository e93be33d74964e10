package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/models"
)

// SubmissionGrader grades one submission in a separate worker process.
type SubmissionGrader interface {
	Grade(ctx context.Context, sub models.Submission) models.SubmissionResult
}

// ResultPublisher delivers the result of a submission.
type ResultPublisher interface {
	PublishSubmissionResult(result models.SubmissionResult) error
}

// JobHandler grades submissions delivered by the transport, with at most
// maxJobs worker processes alive at once.
type JobHandler struct {
	publisher    ResultPublisher
	grader       SubmissionGrader
	jobSemaphore chan struct{}
	jobTimeout   time.Duration
	log          *zap.SugaredLogger
}

// NewJobHandler builds a handler; maxJobs <= 0 means unlimited.
func NewJobHandler(publisher ResultPublisher, grader SubmissionGrader, maxJobs int, jobTimeout time.Duration, log *zap.SugaredLogger) *JobHandler {
	var sem chan struct{}
	if maxJobs > 0 {
		sem = make(chan struct{}, maxJobs)
	}
	log.Infow("job handler initialized", "maxConcurrentJobs", maxJobs, "jobTimeout", jobTimeout)
	return &JobHandler{
		publisher:    publisher,
		grader:       grader,
		jobSemaphore: sem,
		jobTimeout:   jobTimeout,
		log:          log,
	}
}

func (h *JobHandler) HandleSubmission(submission models.Submission) {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	log := h.log.With("submissionId", submission.ID)

	if h.jobSemaphore != nil {
		waitStart := time.Now()
		h.jobSemaphore <- struct{}{}
		log.Debugw("job slot acquired", "waited", time.Since(waitStart))
		defer func() { <-h.jobSemaphore }()
	}

	ctx := context.Background()
	if h.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.jobTimeout)
		defer cancel()
	}

	result := h.grader.Grade(ctx, submission)
	log.Infow("submission processed", "status", result.Status, "passed", result.Passed, "total", result.Total)
	if err := h.publisher.PublishSubmissionResult(result); err != nil {
		log.Errorw("result was not delivered", "error", err)
	}
}
