package scheduler

import (
	"context"

	"github.com/codyseavey/basket-tracker/internal/services"
)

// DailyRunJobName is the name the batch aggregation job registers under
const DailyRunJobName = "daily_run"

// DailyRunner runs the gated batch aggregation
type DailyRunner interface {
	RunDaily(ctx context.Context, trigger services.RunTrigger) (*services.RunReport, error)
}

// DailyRunJob records today's portfolio snapshot on schedule
type DailyRunJob struct {
	runner DailyRunner
}

// NewDailyRunJob creates the batch aggregation job
func NewDailyRunJob(runner DailyRunner) *DailyRunJob {
	return &DailyRunJob{runner: runner}
}

// Name returns the job name
func (j *DailyRunJob) Name() string {
	return DailyRunJobName
}

// Run executes one scheduled batch run
func (j *DailyRunJob) Run(ctx context.Context) error {
	_, err := j.runner.RunDaily(ctx, services.TriggerSchedule)
	return err
}
