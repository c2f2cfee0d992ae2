package export

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the run times of a standard five-field cron expression.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// ParseSchedule parses expr, e.g. "0 18 * * 1-5" or "@daily".
func ParseSchedule(expr string) (*Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return &Schedule{expr: expr, sched: sched}, nil
}

func (s *Schedule) String() string { return s.expr }

// Next returns the first run time after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// Run calls job at every scheduled time until ctx is done. Jobs run one at a
// time on the calling goroutine; a job error is passed to onErr and the loop
// continues.
func (s *Schedule) Run(ctx context.Context, job func(context.Context, time.Time) error, onErr func(error)) error {
	for {
		next := s.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := job(ctx, next); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// TimestampedPath returns dir/<prefix>-<yyyymmdd-hhmmss>.csv.
func TimestampedPath(dir, prefix string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.csv", prefix, t.Format("20060102-150405")))
}
