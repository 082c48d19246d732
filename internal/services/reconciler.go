package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
)

const reconcileBatchSize = 500

// Reconciler periodically re-dispatches records that never got analyzed (for
// example because the queue was full or the process stopped) and can re-read
// every active source to backfill lines missed while not running.
type Reconciler struct {
	records    *LogRecordService
	sources    *LogSourceService
	dispatcher AnalysisDispatcher
	pendingAge time.Duration
	rescan     bool
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	log        *logrus.Entry
}

func NewReconciler(records *LogRecordService, sources *LogSourceService, dispatcher AnalysisDispatcher, pendingAge time.Duration, rescan bool) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		records:    records,
		sources:    sources,
		dispatcher: dispatcher,
		pendingAge: pendingAge,
		rescan:     rescan,
		cron:       cron.New(),
		ctx:        ctx,
		cancel:     cancel,
		log:        logger.Component("reconcile"),
	}
}

// Start schedules the reconcile job on a standard cron spec such as "@every 5m".
func (r *Reconciler) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", schedule, err)
	}
	r.cron.Start()
	r.log.WithField("schedule", schedule).Info("reconciler started")
	return nil
}

// Stop halts the schedule, cancels a running job and waits for it to return.
func (r *Reconciler) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
}

func (r *Reconciler) run() {
	ctx := r.ctx
	if _, err := r.RequeuePending(ctx); err != nil {
		r.log.WithError(err).Error("requeue pending records failed")
	}
	if r.rescan {
		if _, err := r.RescanSources(ctx); err != nil {
			r.log.WithError(err).Error("rescan failed")
		}
	}
}

// RequeuePending dispatches records still unanalyzed after pendingAge and
// returns how many were handed over.
func (r *Reconciler) RequeuePending(ctx context.Context) (int, error) {
	pending, err := r.records.ListPending(time.Now().UTC().Add(-r.pendingAge), reconcileBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		r.dispatcher.AnalyzeAsync(&pending[i])
	}
	if len(pending) > 0 {
		r.log.WithField("records", len(pending)).Info("requeued pending records")
	}
	return len(pending), nil
}

// RescanSources re-reads every active file source. A source whose file cannot
// be read is logged and skipped. It returns the total lines processed.
func (r *Reconciler) RescanSources(ctx context.Context) (int, error) {
	sources, err := r.sources.ListActive()
	if err != nil {
		return 0, fmt.Errorf("list active sources: %w", err)
	}
	total := 0
	for i := range sources {
		src := &sources[i]
		if src.Path == "" {
			continue
		}
		n, err := r.records.IngestFileUpdate(ctx, src, src.Path)
		total += n
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			r.log.WithError(err).WithField("path", src.Path).Warn("rescan of source failed")
		}
	}
	return total, nil
}
