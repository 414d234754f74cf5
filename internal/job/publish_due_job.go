package job

import (
	"Postpilot/internal/pkg/logger"
	"Postpilot/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// PublishDueJob sweeps due posts on a plain cron spec
type PublishDueJob struct {
	publishSvc service.PublishService
	batchSize  int
	now        func() time.Time
}

func NewPublishDueJob(publishSvc service.PublishService, batchSize int, now func() time.Time) *PublishDueJob {
	if batchSize <= 0 {
		batchSize = 50
	}
	if now == nil {
		now = time.Now
	}
	return &PublishDueJob{
		publishSvc: publishSvc,
		batchSize:  batchSize,
		now:        now,
	}
}

func (s *PublishDueJob) Run() {
	ctx := logger.WithTraceID(context.Background(), "job-publish-"+uuid.NewString())

	summary, err := s.publishSvc.PublishDue(ctx, s.now(), s.batchSize)
	if err != nil {
		log.ErrorContext(ctx, "publish due posts failed", "err", err)
	}
	if summary == nil {
		return
	}
	if summary.Published+summary.Failed+summary.Skipped+summary.Expired > 0 {
		log.InfoContext(ctx, "due posts swept",
			"published", summary.Published,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
			"expired", summary.Expired,
		)
	}
}
