// Package sweep runs the daily document expiry check: it loads documents,
// keeps the ones whose reminder day is the run date, and mails the opted-in
// accounts of each owning company.
package sweep

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/common/metrics"
	"github.com/Avisafety/avisafe-sub001/internal/common/observability"
	"github.com/Avisafety/avisafe-sub001/internal/mail"
	"github.com/Avisafety/avisafe-sub001/internal/models"
	"github.com/Avisafety/avisafe-sub001/internal/store"
	"github.com/Avisafety/avisafe-sub001/internal/templates"
)

// Store is the read side of the dashboard database used by a sweep.
type Store interface {
	ListDocumentsWithExpiry(ctx context.Context) ([]models.Document, error)
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
	FindEmailTemplate(ctx context.Context, companyID, templateType string) (*models.EmailTemplate, error)
}

type RecipientResolver interface {
	Resolve(ctx context.Context, companyID, category string) ([]models.UserAccount, error)
}

type Dispatcher interface {
	Provider() string
	Deliver(ctx context.Context, d mail.Delivery) mail.Outcome
}

// DispatcherFactory returns the dispatcher for one run. It fails with
// MAIL_CONFIG_MISSING when the mail settings are incomplete.
type DispatcherFactory func(ctx context.Context) (Dispatcher, error)

// Publisher receives the report of every finished run.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, r *Report) error
}

type RunRequest struct {
	Date   civil.Date `json:"date"`
	DryRun bool       `json:"dryRun"`
}

// Report summarizes one run. DocumentsChecked counts documents whose reminder
// day matched the run date.
type Report struct {
	RunID            string     `json:"runId"`
	RunDate          civil.Date `json:"runDate"`
	DocumentsChecked int        `json:"documentsChecked"`
	EmailsSent       int        `json:"emailsSent"`
	EmailsFailed     int        `json:"emailsFailed"`
	EmailsSkipped    int        `json:"emailsSkipped"`
	CompaniesSkipped int        `json:"companiesSkipped"`
	NothingToDo      bool       `json:"nothingToDo"`
	DryRun           bool       `json:"dryRun"`
	Provider         string     `json:"provider,omitempty"`
	State            State      `json:"state"`
	StartedAt        time.Time  `json:"startedAt"`
	DurationMs       int64      `json:"durationMs"`
}

type Options struct {
	Category     string
	TemplateType string
	Locale       string
	Concurrency  int
	Timeout      time.Duration
}

// OptionsFromConfig maps the sweep section of the service config.
func OptionsFromConfig(cfg config.SweepConfig) Options {
	return Options{
		Category:     cfg.Category,
		TemplateType: cfg.TemplateType,
		Locale:       cfg.Locale,
		Concurrency:  cfg.Concurrency,
		Timeout:      config.GetDuration(cfg.Timeout),
	}
}

type Orchestrator struct {
	store         Store
	resolver      RecipientResolver
	newDispatcher DispatcherFactory
	publishers    []Publisher
	opts          Options
	logger        logger.Logger

	running sync.Mutex
	state   atomic.Int32
}

func NewOrchestrator(s Store, r RecipientResolver, factory DispatcherFactory, opts Options, log logger.Logger, publishers ...Publisher) *Orchestrator {
	if opts.Category == "" {
		opts.Category = "document_expiry"
	}
	if opts.TemplateType == "" {
		opts.TemplateType = templates.TypeDocumentReminder
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Orchestrator{
		store:         s,
		resolver:      r,
		newDispatcher: factory,
		publishers:    publishers,
		opts:          opts,
		logger:        log.WithFields(map[string]interface{}{"component": "sweep"}),
	}
}

// State returns the state of the current or last run.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Run executes one sweep for req.Date. Only one run may be active per
// orchestrator; a concurrent call fails with SWEEP_IN_PROGRESS.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Report, error) {
	if !o.running.TryLock() {
		metrics.SweepRuns.WithLabelValues("rejected").Inc()
		return nil, errors.NewSweepInProgressError()
	}
	defer o.running.Unlock()

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	report := &Report{
		RunID:     uuid.New().String(),
		RunDate:   req.Date,
		DryRun:    req.DryRun,
		StartedAt: time.Now().UTC(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"runId":   report.RunID,
		"runDate": req.Date.String(),
		"dryRun":  req.DryRun,
	})

	ctx, span := observability.StartSpan(ctx, "sweep.run",
		attribute.String("sweep.run_id", report.RunID),
		attribute.String("sweep.date", req.Date.String()),
		attribute.Bool("sweep.dry_run", req.DryRun),
	)
	defer span.End()

	err := o.run(ctx, req, report, log)

	report.DurationMs = time.Since(report.StartedAt).Milliseconds()
	metrics.SweepDuration.Observe(time.Since(report.StartedAt).Seconds())

	if err != nil {
		o.setState(StateFailed, log)
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		span.RecordError(err)
		log.Error("sweep failed", map[string]interface{}{"error": err})
		return nil, err
	}

	o.setState(StateCompleted, log)
	report.State = StateCompleted
	outcome := "completed"
	if report.NothingToDo {
		outcome = "nothing_to_do"
	}
	metrics.SweepRuns.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int("sweep.documents_checked", report.DocumentsChecked),
		attribute.Int("sweep.emails_sent", report.EmailsSent),
	)

	log.Info("sweep completed", map[string]interface{}{
		"documentsChecked": report.DocumentsChecked,
		"emailsSent":       report.EmailsSent,
		"emailsFailed":     report.EmailsFailed,
		"emailsSkipped":    report.EmailsSkipped,
		"companiesSkipped": report.CompaniesSkipped,
		"durationMs":       report.DurationMs,
	})

	o.publish(ctx, report, log)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, req RunRequest, report *Report, log logger.Logger) error {
	if !req.Date.IsValid() {
		return errors.NewInvalidRequestError(fmt.Sprintf("invalid run date %q", req.Date.String()))
	}

	dispatcher, err := o.newDispatcher(ctx)
	if err != nil {
		return err
	}
	report.Provider = dispatcher.Provider()

	o.setState(StateLoading, log)
	docs, err := o.store.ListDocumentsWithExpiry(ctx)
	if err != nil {
		return errors.NewDocumentsLoadFailedError(err)
	}

	o.setState(StateEvaluating, log)
	due := dueDocuments(docs, req.Date)
	report.DocumentsChecked = len(due)
	metrics.DocumentsChecked.Add(float64(len(due)))

	log.Info("documents evaluated", map[string]interface{}{
		"candidates": len(docs),
		"due":        len(due),
	})

	if len(due) == 0 {
		report.NothingToDo = true
		return nil
	}

	o.setState(StateDispatching, log)
	return o.dispatch(ctx, groupByCompany(due), dispatcher, req, report, log)
}

// dispatch walks the companies sequentially and fans out the sends of each
// company. Send failures are counted, never returned.
func (o *Orchestrator) dispatch(ctx context.Context, batches []CompanyBatch, dispatcher Dispatcher, req RunRequest, report *Report, log logger.Logger) error {
	var (
		sent, failed, skipped atomic.Int64
		g                     errgroup.Group
	)
	g.SetLimit(o.opts.Concurrency)

	count := func(out mail.Outcome) {
		switch out.Status {
		case mail.StatusSent:
			sent.Add(1)
		case mail.StatusSkipped:
			skipped.Add(1)
		default:
			failed.Add(1)
		}
		metrics.Emails.WithLabelValues(string(out.Status)).Inc()
	}

	var interrupted error
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}

		companyLog := log.WithFields(map[string]interface{}{"companyId": batch.CompanyID})

		recipients, err := o.resolver.Resolve(ctx, batch.CompanyID, o.opts.Category)
		if err != nil {
			report.CompaniesSkipped++
			metrics.CompaniesSkipped.Inc()
			companyLog.Warn("skipping company, recipients unavailable", map[string]interface{}{
				"error": errors.NewRecipientsResolveFailedError(batch.CompanyID, err),
			})
			continue
		}
		if len(recipients) == 0 {
			report.CompaniesSkipped++
			metrics.CompaniesSkipped.Inc()
			companyLog.Info("skipping company, no opted-in recipients", map[string]interface{}{
				"documents": len(batch.Documents),
			})
			continue
		}

		companyName := o.companyName(ctx, batch.CompanyID, companyLog)
		tmpl := o.template(ctx, batch.CompanyID, companyLog)

		for _, doc := range batch.Documents {
			msg := templates.Render(tmpl, o.opts.TemplateType, documentFields(doc, companyName, o.opts.Locale, req.Date))

			for _, recipient := range recipients {
				delivery := mail.Delivery{
					DocumentID:  doc.ID,
					RecipientID: recipient.ID,
					Date:        req.Date,
					To:          recipient.Email,
					Subject:     msg.Subject,
					HTML:        msg.HTML,
				}

				if req.DryRun {
					companyLog.Debug("dry run, not sending", map[string]interface{}{
						"documentId": doc.ID,
						"to":         recipient.Email,
						"subject":    msg.Subject,
					})
					count(mail.Outcome{Status: mail.StatusSkipped, Reason: "dry run"})
					continue
				}

				g.Go(func() error {
					count(dispatcher.Deliver(ctx, delivery))
					return nil
				})
			}
		}
	}

	_ = g.Wait()

	report.EmailsSent = int(sent.Load())
	report.EmailsFailed = int(failed.Load())
	report.EmailsSkipped = int(skipped.Load())

	if interrupted != nil {
		return errors.NewInternalError(fmt.Errorf("sweep interrupted after %d sent: %w", report.EmailsSent, interrupted))
	}
	return nil
}

// companyName falls back to an empty name when the company row is missing or
// unreadable.
func (o *Orchestrator) companyName(ctx context.Context, companyID string, log logger.Logger) string {
	company, err := o.store.GetCompany(ctx, companyID)
	if err != nil {
		if !stderrors.Is(err, store.ErrNotFound) {
			log.Warn("company lookup failed", map[string]interface{}{
				"error": errors.NewCompanyLookupFailedError(companyID, err),
			})
		}
		return ""
	}
	if company == nil {
		return ""
	}
	return company.Name
}

// template returns the company override or nil for the built-in default. It
// is called once per company per run.
func (o *Orchestrator) template(ctx context.Context, companyID string, log logger.Logger) *models.EmailTemplate {
	tmpl, err := o.store.FindEmailTemplate(ctx, companyID, o.opts.TemplateType)
	if err != nil {
		log.Warn("template lookup failed, using default", map[string]interface{}{
			"error": errors.NewTemplateLookupFailedError(companyID, o.opts.TemplateType, err),
		})
		return nil
	}
	return tmpl
}

func (o *Orchestrator) setState(s State, log logger.Logger) {
	o.state.Store(int32(s))
	metrics.SweepState.Set(float64(s))
	log.Debug("sweep state", map[string]interface{}{"state": s.String()})
}

func (o *Orchestrator) publish(ctx context.Context, report *Report, log logger.Logger) {
	for _, p := range o.publishers {
		if err := p.Publish(ctx, report); err != nil {
			log.Warn("report publish failed", map[string]interface{}{
				"publisher": p.Name(),
				"error":     err,
			})
		}
	}
}
