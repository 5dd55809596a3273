package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

type CronScheduler struct {
	parser  cron.Parser
	cron    *cron.Cron
	pending []pendingJob
}

type pendingJob struct {
	job  Job
	spec string
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		parser: parser,
		cron:   cron.New(cron.WithParser(parser)),
	}
}

// AddJob validates the schedule and queues the job. Registration happens in
// Start, which supplies the context every run receives.
func (c *CronScheduler) AddJob(job Job, spec string) error {
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", job.Name()), zap.String("spec", spec))
	if _, err := c.parser.Parse(spec); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.pending = append(c.pending, pendingJob{job: job, spec: spec})
	logger.Info("job scheduled")
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, item := range c.pending {
		// The spec already passed the same parser in AddJob.
		_, _ = c.cron.AddFunc(item.spec, wrapJob(ctx, item.job, item.spec))
	}
	c.pending = nil
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

// wrapJob serializes runs of one job: a tick that fires while the previous
// run is still going is skipped, not queued.
func wrapJob(ctx context.Context, job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		logger := logutil.GetLogger(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}
