package scheduler

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/sweep"
)

type recordingRunner struct {
	requests []sweep.RunRequest
	err      error
}

func (r *recordingRunner) Run(_ context.Context, req sweep.RunRequest) (*sweep.Report, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &sweep.Report{RunID: "run-1", RunDate: req.Date}, nil
}

func oslo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)
	return loc
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every morning", time.UTC, &recordingRunner{}, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestScheduler_TickUsesLocalDate(t *testing.T) {
	runner := &recordingRunner{}
	s, err := New("0 6 * * *", oslo(t), runner, logger.NewTestLogger(t))
	require.NoError(t, err)

	// 23:30 UTC on 28 Feb is already 1 March in Oslo.
	s.now = func() time.Time { return time.Date(2025, time.February, 28, 23, 30, 0, 0, time.UTC) }
	s.tick()

	require.Len(t, runner.requests, 1)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 1}, runner.requests[0].Date)
	assert.False(t, runner.requests[0].DryRun)
}

func TestScheduler_TickSurvivesErrors(t *testing.T) {
	runner := &recordingRunner{err: errors.NewSweepInProgressError()}
	s, err := New("0 6 * * *", time.UTC, runner, logger.NewNoOpLogger())
	require.NoError(t, err)

	s.tick()
	runner.err = errors.NewDocumentsLoadFailedError(assert.AnError)
	s.tick()

	assert.Len(t, runner.requests, 2)
}

func TestScheduler_Next(t *testing.T) {
	loc := oslo(t)
	s, err := New("0 6 * * *", loc, &recordingRunner{}, logger.NewNoOpLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.Next().In(loc)
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
}
