package camunda

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
)

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{
			name:     "gateway down",
			err:      stderrors.New("rpc error: code = Unavailable desc = connection refused"),
			wantCode: errors.ErrCodeWorkflowUnavailable,
		},
		{
			name:     "deadline",
			err:      stderrors.New("context deadline exceeded"),
			wantCode: errors.ErrCodeWorkflowUnavailable,
		},
		{
			name:     "rejected",
			err:      stderrors.New("rpc error: code = NotFound desc = job not found"),
			wantCode: errors.ErrCodeWorkflowRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapZeebeError(tt.err, "topology")

			assert.True(t, errors.HasCode(err, tt.wantCode))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWorkflowErrorsRetry(t *testing.T) {
	unavailable := errors.ConvertToBPMNError(errors.NewWorkflowUnavailableError("topology", stderrors.New("unavailable")))
	rejected := errors.ConvertToBPMNError(errors.NewWorkflowRejectedError("topology", stderrors.New("not found")))

	assert.True(t, unavailable.Retryable)
	assert.False(t, rejected.Retryable)
}
