package documentexpirysweep

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/common/metrics"
	"github.com/Avisafety/avisafe-sub001/internal/common/validation"
	"github.com/Avisafety/avisafe-sub001/internal/expiry"
	"github.com/Avisafety/avisafe-sub001/internal/sweep"
)

const TaskType = "document-expiry-sweep"

var schema = validation.MustCompile(inputSchema)

type Runner interface {
	Run(ctx context.Context, req sweep.RunRequest) (*sweep.Report, error)
}

type Handler struct {
	config       *Config
	runner       Runner
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	now          func() time.Time
}

type HandlerOptions struct {
	AppConfig *config.Config
	Timezone  *time.Location
	Runner    Runner
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.Timezone)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json", TaskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       workerConfig,
		runner:       opts.Runner,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		now:          time.Now,
	}, nil
}

func (h *Handler) Config() *Config {
	return h.config
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing sweep job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	output, err := h.process(ctx, job)
	if err != nil {
		code := "UNKNOWN_ERROR"
		if se, ok := errors.AsStandardError(err); ok {
			code = string(se.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	req, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}

	report, err := h.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return toOutput(report), nil
}

// parseInput reads {date?, dryRun?}. Without a date the run date is today in
// the configured timezone.
func (h *Handler) parseInput(job entities.Job) (sweep.RunRequest, error) {
	req := sweep.RunRequest{Date: expiry.Today(h.now(), h.config.Timezone)}

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return req, errors.NewInvalidRequestError("parse job variables: " + err.Error())
	}

	if result := schema.ValidateInput(variables); !result.Valid {
		return req, errors.NewInvalidRequestError(result.Summary())
	}

	if raw, ok := variables["date"].(string); ok && raw != "" {
		date, err := civil.ParseDate(raw)
		if err != nil {
			return req, errors.NewInvalidRequestError("date: " + err.Error())
		}
		req.Date = date
	}
	if dryRun, ok := variables["dryRun"].(bool); ok {
		req.DryRun = dryRun
	}
	return req, nil
}

func toOutput(r *sweep.Report) *Output {
	return &Output{
		Success:          true,
		RunID:            r.RunID,
		RunDate:          r.RunDate.String(),
		NothingToDo:      r.NothingToDo,
		DocumentsChecked: r.DocumentsChecked,
		EmailsSent:       r.EmailsSent,
		EmailsFailed:     r.EmailsFailed,
		EmailsSkipped:    r.EmailsSkipped,
		CompaniesSkipped: r.CompaniesSkipped,
		DryRun:           r.DryRun,
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewInternalError(err))
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		return
	}

	h.logger.Info("sweep job completed", map[string]interface{}{
		"jobKey":           job.GetKey(),
		"documentsChecked": output.DocumentsChecked,
		"emailsSent":       output.EmailsSent,
	})
}
