package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Avisafety/avisafe-sub001/internal/common/aws"
	"github.com/Avisafety/avisafe-sub001/internal/common/camunda"
	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/database"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/common/observability"
	"github.com/Avisafety/avisafe-sub001/internal/ledger"
	"github.com/Avisafety/avisafe-sub001/internal/mail"
	"github.com/Avisafety/avisafe-sub001/internal/recipients"
	"github.com/Avisafety/avisafe-sub001/internal/report"
	"github.com/Avisafety/avisafe-sub001/internal/scheduler"
	"github.com/Avisafety/avisafe-sub001/internal/server"
	"github.com/Avisafety/avisafe-sub001/internal/store"
	"github.com/Avisafety/avisafe-sub001/internal/sweep"
	des "github.com/Avisafety/avisafe-sub001/internal/workers/notifications/document-expiry-sweep"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": cfg.App.Name})

	log.Info("starting document expiry notifier", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Sweep.Timezone)
	if err != nil {
		zapLog.Fatal("invalid sweep timezone", zap.Error(err))
	}

	var obs *observability.Observability
	if cfg.Observability.Metrics.Enabled {
		obs, err = observability.New(cfg.App.Name)
		if err != nil {
			log.Warn("otel metrics disabled", map[string]interface{}{"error": err})
		}
	}
	if cfg.Observability.Tracing.Enabled {
		if obs == nil {
			obs = &observability.Observability{}
		}
		if err := obs.EnableTracing(cfg.App.Name, cfg.Observability.Tracing.JaegerEndpoint, cfg.Observability.Tracing.SampleRatio); err != nil {
			log.Warn("tracing disabled", map[string]interface{}{"error": err})
		}
	}
	defer obs.Shutdown(context.Background())

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("PostgreSQL connected", nil)

	checks := []server.Check{{Name: "postgres", Pinger: pg}}

	// --- Redis (optional, backs the notification ledger) ---
	var dispatchOpts []mail.Option
	if obs != nil {
		dispatchOpts = append(dispatchOpts, mail.WithRecorder(obs))
	}
	if cfg.Database.Redis.Address != "" {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks = append(checks, server.Check{Name: "redis", Pinger: rdb})

		if cfg.Sweep.Dedupe.Enabled {
			ttl := time.Duration(cfg.Sweep.Dedupe.TTLHours) * time.Hour
			dispatchOpts = append(dispatchOpts, mail.WithLedger(ledger.NewRedisLedger(rdb.Client, ttl)))
			log.Info("notification ledger enabled", map[string]interface{}{"ttl": ttl.String()})
		}
	}

	// --- Report sinks ---
	var publishers []sweep.Publisher
	if cfg.Report.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		publishers = append(publishers, report.NewSNSPublisher(snsClient, cfg.Report.SNS.TopicARN))
	}
	if cfg.Report.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.EnsureIndex(ctx, cfg.Report.Elasticsearch.Index)
		}, 10, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks = append(checks, server.Check{Name: "elasticsearch", Pinger: es})
		publishers = append(publishers, report.NewElasticsearchIndexer(es.Client, cfg.Report.Elasticsearch.Index))
	}

	// --- Sweep ---
	records := store.New(pg.DB, config.GetDuration(cfg.Database.Postgres.QueryTimeout), loc)
	orchestrator := sweep.NewOrchestrator(
		records,
		recipients.NewResolver(records, log),
		sweep.MailDispatcherFactory(cfg.Mail, cfg.AWS.Region, log, dispatchOpts...),
		sweep.OptionsFromConfig(cfg.Sweep),
		log,
		publishers...,
	)

	// --- Zeebe worker ---
	var zeebeWorker *camunda.Worker
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, des.TaskType) {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(ctx, cfg.Camunda)
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		checks = append(checks, server.Check{Name: "zeebe", Pinger: zeebe})

		handler, err := des.NewHandler(des.HandlerOptions{
			AppConfig: cfg,
			Timezone:  loc,
			Runner:    orchestrator,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create document-expiry-sweep handler", zap.Error(err))
		}
		zeebeWorker = camunda.StartWorker(zeebe.Zeebe(), des.TaskType, camunda.WorkerOptions{
			MaxJobsActive: handler.Config().MaxJobsActive,
			Timeout:       handler.Config().Timeout,
		}, handler.Handle, log)
	}

	// --- Schedule ---
	var sched *scheduler.Scheduler
	if cfg.Sweep.Schedule != "" {
		sched, err = scheduler.New(cfg.Sweep.Schedule, loc, orchestrator, log)
		if err != nil {
			zapLog.Fatal("invalid sweep schedule", zap.Error(err))
		}
		sched.Start()
	}

	// --- HTTP trigger, health and metrics ---
	srv := server.New(cfg.Server, orchestrator, loc, log, checks...).HTTPServer()
	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if zeebeWorker != nil {
		zeebeWorker.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err})
	}

	log.Info("notifier stopped", nil)
}
