package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yildizm/go-logparser"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/models"
	"github.com/Wikid82/logwarden/internal/util"
)

// AnalysisDispatcher schedules a stored record for analysis without blocking.
type AnalysisDispatcher interface {
	AnalyzeAsync(record *models.LogRecord)
}

// LogRecordService is the ingestion gateway: it persists lines exactly once
// per (source, text) and hands new work to the dispatcher.
type LogRecordService struct {
	db         *gorm.DB
	dispatcher AnalysisDispatcher
	log        *logrus.Entry

	// parser keeps format-detection state between calls.
	parserMu sync.Mutex
	parser   logparser.Parser
}

func NewLogRecordService(db *gorm.DB, dispatcher AnalysisDispatcher) *LogRecordService {
	return &LogRecordService{
		db:         db,
		dispatcher: dispatcher,
		parser:     logparser.New(),
		log:        logger.Component("ingest"),
	}
}

// SaveRawLog stores rawText for sourceID unless the same text was already
// stored for that source, and returns the stored record either way.
func (s *LogRecordService) SaveRawLog(rawText, sourceID string) (*models.LogRecord, error) {
	rec := models.NewLogRecord(sourceID, rawText)
	if level, ts := s.extractMetadata(rec.RawText); level != "" || !ts.IsZero() {
		rec.Level = level
		if !ts.IsZero() {
			rec.Timestamp = ts.UTC()
		}
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return nil, fmt.Errorf("insert log record: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		metrics.IncLineIngested(false)
		return rec, nil
	}

	var existing models.LogRecord
	if err := s.db.Where("source_id = ? AND raw_text = ?", sourceID, rec.RawText).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("load existing log record: %w", err)
	}
	metrics.IncLineIngested(true)
	return &existing, nil
}

// extractMetadata pulls a level and timestamp out of the line when it is in a
// recognised format.
func (s *LogRecordService) extractMetadata(line string) (string, time.Time) {
	s.parserMu.Lock()
	entries, err := s.parser.ParseString(line)
	s.parserMu.Unlock()
	if err != nil || len(entries) == 0 {
		return "", time.Time{}
	}
	level := strings.ToUpper(strings.TrimSpace(entries[0].Level))
	if len(level) > 16 {
		level = ""
	}
	return level, entries[0].Timestamp
}

// HandleLine persists one tailed line and schedules it for analysis. Blank
// lines are ignored. Errors are logged; tailing carries on.
func (s *LogRecordService) HandleLine(sourceID, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	rec, err := s.SaveRawLog(line, sourceID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"source_id": sourceID,
			"line":      util.SanitizeForLog(line),
		}).Error("failed to store log line")
		return
	}
	if s.dispatcher != nil && !rec.Analyzed {
		s.dispatcher.AnalyzeAsync(rec)
	}
}

// IngestFileUpdate re-reads the whole file at path for source. Lines already
// stored collapse onto their existing record, so a rescan never duplicates
// data. It returns the number of non-blank lines processed.
func (s *LogRecordService) IngestFileUpdate(ctx context.Context, source *models.LogSource, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return count, fmt.Errorf("read %s: %w", path, readErr)
		}
		line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if strings.TrimSpace(line) != "" {
			rec, err := s.SaveRawLog(line, source.ID)
			if err != nil {
				return count, err
			}
			if s.dispatcher != nil && !rec.Analyzed {
				s.dispatcher.AnalyzeAsync(rec)
			}
			count++
		}
		if readErr != nil {
			break
		}
	}
	s.log.WithFields(logrus.Fields{"path": path, "lines": count}).Info("rescan complete")
	return count, nil
}

// FindByID loads a record with its analysis.
func (s *LogRecordService) FindByID(id string) (*models.LogRecord, error) {
	var rec models.LogRecord
	err := s.db.Preload("Analysis").First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find log record: %w", err)
	}
	return &rec, nil
}

// ListPending returns unanalyzed records ingested before olderThan, oldest first.
func (s *LogRecordService) ListPending(olderThan time.Time, limit int) ([]models.LogRecord, error) {
	return s.listPending(s.db, olderThan, limit)
}

// ListPendingForSource is ListPending restricted to one source.
func (s *LogRecordService) ListPendingForSource(sourceID string, olderThan time.Time, limit int) ([]models.LogRecord, error) {
	return s.listPending(s.db.Where("source_id = ?", sourceID), olderThan, limit)
}

func (s *LogRecordService) listPending(q *gorm.DB, olderThan time.Time, limit int) ([]models.LogRecord, error) {
	var records []models.LogRecord
	q = q.Where("analyzed = ? AND ingested_at < ?", false, olderThan).Order("ingested_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	result := q.Find(&records)
	return records, result.Error
}
