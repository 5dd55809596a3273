package job

import (
	"context"
	"time"

	"github.com/xxxsen/askyt/internal/service"
)

const cleanupBatchLimit = 100

// IngestCleanupJob sweeps pending claims and vector chunks left behind by
// ingestions that crashed before rollback could run.
type IngestCleanupJob struct {
	ingest     *service.IngestService
	ageSeconds int64
}

func NewIngestCleanupJob(ingest *service.IngestService, ageSeconds int64) *IngestCleanupJob {
	return &IngestCleanupJob{ingest: ingest, ageSeconds: ageSeconds}
}

func (j *IngestCleanupJob) Name() string {
	return "ingest_cleanup"
}

func (j *IngestCleanupJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	return j.ingest.CleanupStale(ctx, time.Duration(j.ageSeconds)*time.Second, cleanupBatchLimit)
}
