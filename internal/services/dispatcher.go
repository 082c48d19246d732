package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/analysis"
	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/models"
)

// RecordAnalyzer produces a verdict for a raw line. It must not fail.
type RecordAnalyzer interface {
	Analyze(ctx context.Context, rawLine string) analysis.Result
}

// Decider evaluates alert rules for a freshly analyzed record.
type Decider interface {
	Evaluate(record *models.LogRecord, a *models.Analysis) (DecisionOutcome, error)
}

// Dispatcher runs analyses on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	db       *gorm.DB
	analyzer RecordAnalyzer
	decider  Decider
	workers  int
	log      *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan string
	wg     sync.WaitGroup

	mu       sync.RWMutex
	started  bool
	closed   bool
	draining bool
}

func NewDispatcher(db *gorm.DB, analyzer RecordAnalyzer, decider Decider, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		db:       db,
		analyzer: analyzer,
		decider:  decider,
		workers:  workers,
		log:      logger.Component("dispatcher"),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan string, queueSize),
	}
}

// Start launches the worker pool. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.WithField("workers", d.workers).Info("analysis workers started")
}

// AnalyzeAsync queues record for analysis and returns immediately. When the
// queue is full the record is left for the reconciler.
func (d *Dispatcher) AnalyzeAsync(record *models.LogRecord) {
	if record == nil || record.Analyzed {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- record.ID:
	default:
		metrics.IncQueueDropped()
		d.log.WithField("record_id", record.ID).Warn("analysis queue full, record deferred")
	}
}

// QueueLen is the number of records waiting for a worker.
func (d *Dispatcher) QueueLen() int {
	return len(d.queue)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for id := range d.queue {
		d.mu.RLock()
		skip := d.closed && !d.draining
		d.mu.RUnlock()
		if skip {
			continue
		}
		d.process(id)
	}
}

func (d *Dispatcher) process(id string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{"record_id": id, "panic": r}).Error("analysis task panicked")
		}
	}()

	_, err := d.AnalyzeNow(d.ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyAnalyzed), errors.Is(err, ErrRecordNotFound):
		d.log.WithError(err).WithField("record_id", id).Debug("analysis skipped")
	default:
		d.log.WithError(err).WithField("record_id", id).Error("analysis task failed")
	}
}

// AnalyzeNow analyzes one record synchronously: it obtains a verdict, stores it
// and flips the record to analyzed in one transaction, then runs the decision
// engine. A record is analyzed at most once even if dispatched repeatedly.
func (d *Dispatcher) AnalyzeNow(ctx context.Context, recordID string) (*models.Analysis, error) {
	var rec models.LogRecord
	err := d.db.First(&rec, "id = ?", recordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load log record: %w", err)
	}
	if rec.Analyzed {
		return nil, ErrAlreadyAnalyzed
	}

	result := d.analyzer.Analyze(ctx, rec.RawText)
	a := result.ToAnalysis(rec.ID)
	rec.MarkAnalyzed(a)

	err = d.db.Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.LogRecord{}).
			Where("id = ? AND analyzed = ?", rec.ID, false).
			Updates(map[string]interface{}{"analyzed": true, "has_anomaly": rec.HasAnomaly})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrAlreadyAnalyzed
		}
		return tx.Create(a).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyAnalyzed) {
			return nil, err
		}
		return nil, fmt.Errorf("store analysis: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"record_id": rec.ID,
		"severity":  a.Severity,
		"score":     a.AnomalyScore,
		"provider":  a.Provider,
	}).Debug("record analyzed")

	if d.decider != nil {
		if _, err := d.decider.Evaluate(&rec, a); err != nil {
			return a, fmt.Errorf("decide: %w", err)
		}
	}
	return a, nil
}

// Stop refuses new work, abandons queued records (they stay unanalyzed for the
// reconciler) and waits for in-flight analyses to finish.
func (d *Dispatcher) Stop() {
	d.shutdown(false)
}

// Drain refuses new work, finishes every queued record and then stops.
func (d *Dispatcher) Drain() {
	d.shutdown(true)
}

func (d *Dispatcher) shutdown(drain bool) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.closed = true
	d.draining = drain
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started && drain {
		for id := range d.queue {
			d.process(id)
		}
	}
	d.wg.Wait()
	d.cancel()
	d.log.Info("analysis workers stopped")
}
