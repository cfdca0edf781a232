// Package scheduler triggers the daily sweep from inside the process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/expiry"
	"github.com/Avisafety/avisafe-sub001/internal/sweep"
)

type Runner interface {
	Run(ctx context.Context, req sweep.RunRequest) (*sweep.Report, error)
}

// Scheduler runs the sweep on a cron spec evaluated in the report timezone.
// The run date is the calendar date of the tick in that timezone.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	loc    *time.Location
	logger logger.Logger
	now    func() time.Time
}

func New(spec string, loc *time.Location, runner Runner, log logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		loc:    loc,
		logger: log.WithFields(map[string]interface{}{"component": "scheduler"}),
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("sweep scheduler started", map[string]interface{}{
		"timezone": s.loc.String(),
		"next":     s.Next(),
	})
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next is the time of the next scheduled sweep.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	req := sweep.RunRequest{Date: expiry.Today(s.now(), s.loc)}

	report, err := s.runner.Run(context.Background(), req)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSweepInProgress) {
			s.logger.Warn("scheduled sweep skipped, another run is active", nil)
			return
		}
		s.logger.Error("scheduled sweep failed", map[string]interface{}{"error": err})
		return
	}

	s.logger.Info("scheduled sweep finished", map[string]interface{}{
		"runId":            report.RunID,
		"documentsChecked": report.DocumentsChecked,
		"emailsSent":       report.EmailsSent,
	})
}
