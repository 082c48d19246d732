// Package pipeline assembles the ingestion, analysis and alerting services
// into one runnable unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/analysis"
	"github.com/Wikid82/logwarden/internal/api/routes"
	"github.com/Wikid82/logwarden/internal/config"
	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/services"
	"github.com/Wikid82/logwarden/internal/watcher"
)

// Pipeline owns every long-running component. Build it with New, run it with
// Start and stop it with Shutdown.
type Pipeline struct {
	cfg config.Config
	db  *gorm.DB
	log *logrus.Entry

	Metrics       *prometheus.Registry
	Sources       *services.LogSourceService
	Records       *services.LogRecordService
	Alerts        *services.AlertService
	Notifications *services.NotificationService
	Dispatcher    *services.Dispatcher
	Reconciler    *services.Reconciler
	Watchers      *watcher.Manager

	mu       sync.Mutex
	cancel   context.CancelFunc
	started  bool
	stopOnce sync.Once
}

type options struct {
	providers      *analysis.Registry
	providerOpts   []analysis.Option
	metricsEnabled bool
}

// Option customizes New.
type Option func(*options)

// WithProviders replaces the providers built from configuration.
func WithProviders(r *analysis.Registry) Option {
	return func(o *options) { o.providers = r }
}

// WithProviderOptions is passed to every provider built from configuration.
func WithProviderOptions(opts ...analysis.Option) Option {
	return func(o *options) { o.providerOpts = append(o.providerOpts, opts...) }
}

// WithoutMetrics skips building the Prometheus registry.
func WithoutMetrics() Option {
	return func(o *options) { o.metricsEnabled = false }
}

// New wires the services for cfg on top of an open, migrated database.
func New(cfg config.Config, db *gorm.DB, opts ...Option) (*Pipeline, error) {
	o := options{metricsEnabled: true}
	for _, opt := range opts {
		opt(&o)
	}

	evaluator, err := cfg.App.Rules()
	if err != nil {
		return nil, fmt.Errorf("load alert rules: %w", err)
	}

	providers := o.providers
	if providers == nil {
		providers = analysis.BuildProviders(cfg.App.AI.Models, o.providerOpts...)
	}

	p := &Pipeline{
		cfg: cfg,
		db:  db,
		log: logger.Component("pipeline"),
	}

	if o.metricsEnabled {
		p.Metrics = prometheus.NewRegistry()
		p.Metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics.Register(p.Metrics)
	}

	var mailer services.AlertMailer
	if mail := services.NewMailService(cfg.App.SMTP); mail.IsConfigured() {
		mailer = mail
	} else if cfg.App.ReportEmail != "" {
		p.log.Warn("reportEmail is set but SMTP is not configured; alert emails are disabled")
	}

	p.Sources = services.NewLogSourceService(db)
	p.Alerts = services.NewAlertService(db)
	p.Notifications = services.NewNotificationService(db, mailer, cfg.App.Notify.URLs)
	decisions := services.NewDecisionEngine(evaluator, p.Alerts, p.Notifications, cfg.App.ReportEmail)
	p.Dispatcher = services.NewDispatcher(db, analysis.NewAnalyzer(providers), decisions,
		cfg.App.Analysis.Workers, cfg.App.Analysis.QueueSize)
	p.Records = services.NewLogRecordService(db, p.Dispatcher)
	p.Reconciler = services.NewReconciler(p.Records, p.Sources, p.Dispatcher,
		cfg.App.Reconcile.PendingAge, cfg.App.Reconcile.Rescan)
	p.Watchers = watcher.NewManager(p.Sources, p.Records)

	p.log.WithFields(logrus.Fields{
		"providers": providers.Names(),
		"rules":     evaluator.Len(),
		"workers":   cfg.App.Analysis.Workers,
	}).Info("pipeline assembled")
	return p, nil
}

// Start launches the analysis workers, optionally backfills active sources,
// starts the directory watchers and schedules reconciliation. It does not
// block.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	p.Dispatcher.Start()

	if p.cfg.App.Reconcile.RescanOnStart {
		n, err := p.Reconciler.RescanSources(ctx)
		if err != nil {
			p.log.WithError(err).Error("startup rescan failed")
		} else {
			p.log.WithField("lines", n).Info("startup rescan complete")
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if len(p.cfg.App.WatchPaths) == 0 {
		p.log.Warn(config.ErrNoWatchPaths.Error())
	} else if started := p.Watchers.Start(watchCtx, p.cfg.App.WatchPaths); started == 0 {
		p.log.WithField("paths", p.cfg.App.WatchPaths).Error("no watch loop could be started")
	}

	if err := p.Reconciler.Start(p.cfg.App.Reconcile.Schedule); err != nil {
		cancel()
		return err
	}
	p.started = true
	return nil
}

// Shutdown stops the watchers first so no new lines arrive, then the
// reconciler, then the analysis workers, and finally waits for outstanding
// chat notifications. Records still queued stay unanalyzed for the next run.
func (p *Pipeline) Shutdown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		cancel, started := p.cancel, p.started
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		p.Watchers.Wait()
		if started {
			p.Reconciler.Stop()
		}
		p.Dispatcher.Stop()
		p.Notifications.Wait()
		p.log.Info("pipeline stopped")
	})
}

// Rescan ingests the whole of path once and waits until every resulting
// analysis is done. Records the queue could not hold are analyzed inline
// afterwards. It is used without Start.
func (p *Pipeline) Rescan(ctx context.Context, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	src, err := p.Sources.GetOrCreate(abs)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	p.Dispatcher.Start()
	n, ingestErr := p.Records.IngestFileUpdate(ctx, src, abs)
	p.Dispatcher.Drain()

	pending, err := p.Records.ListPendingForSource(src.ID, time.Now().UTC().Add(time.Second), 0)
	if err != nil {
		return n, fmt.Errorf("list pending records: %w", err)
	}
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		if _, err := p.Dispatcher.AnalyzeNow(ctx, pending[i].ID); err != nil && !errors.Is(err, services.ErrAlreadyAnalyzed) {
			p.log.WithError(err).WithField("record_id", pending[i].ID).Error("analysis failed")
		}
	}
	p.Notifications.Wait()

	p.log.WithFields(logrus.Fields{
		"path":     abs,
		"lines":    n,
		"deferred": len(pending),
		"duration": time.Since(start).String(),
	}).Info("rescan finished")
	return n, ingestErr
}

// RouteDependencies exposes the services the HTTP API reads from.
func (p *Pipeline) RouteDependencies() routes.Dependencies {
	deps := routes.Dependencies{
		DB:            p.db,
		Alerts:        p.Alerts,
		Sources:       p.Sources,
		Records:       p.Records,
		Notifications: p.Notifications,
		Queue:         p.Dispatcher,
	}
	if p.Metrics != nil {
		deps.Gatherer = p.Metrics
	}
	return deps
}
