package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/util"
)

// MaxRawTextLength bounds the stored line; longer lines are cut on a rune boundary.
const MaxRawTextLength = 65535

// AnomalyThreshold is the score a record must exceed to be flagged as an anomaly.
const AnomalyThreshold = 0.7

// LogRecord is one persisted line. (SourceID, RawText) is unique, which is what
// makes ingestion idempotent.
type LogRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	SourceID   string    `gorm:"not null;uniqueIndex:idx_log_records_source_raw,priority:1" json:"source_id"`
	Timestamp  time.Time `gorm:"not null" json:"timestamp"`
	IngestedAt time.Time `gorm:"not null;index" json:"ingested_at"`
	RawText    string    `gorm:"type:text;not null;uniqueIndex:idx_log_records_source_raw,priority:2" json:"raw_text"`
	Level      string    `gorm:"size:16" json:"level,omitempty"`
	Analyzed   bool      `gorm:"not null;index" json:"analyzed"`
	HasAnomaly bool      `gorm:"not null;index" json:"has_anomaly"`
	Analysis   *Analysis `gorm:"foreignKey:LogRecordID" json:"analysis,omitempty"`
}

// NewLogRecord builds an unanalyzed record for sourceID. The raw text is
// truncated to MaxRawTextLength before it becomes part of the dedup key.
func NewLogRecord(sourceID, rawText string) *LogRecord {
	now := time.Now().UTC()
	return &LogRecord{
		SourceID:   sourceID,
		RawText:    util.TruncateUTF8(rawText, MaxRawTextLength),
		Timestamp:  now,
		IngestedAt: now,
	}
}

// MarkAnalyzed attaches a and derives HasAnomaly from its score.
func (r *LogRecord) MarkAnalyzed(a *Analysis) {
	r.Analyzed = true
	r.Analysis = a
	r.HasAnomaly = a != nil && IsAnomalous(a.AnomalyScore)
}

// IsAnomalous reports whether score is strictly above AnomalyThreshold.
func IsAnomalous(score float64) bool {
	return score > AnomalyThreshold
}

func (r *LogRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if r.IngestedAt.IsZero() {
		r.IngestedAt = now
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = r.IngestedAt
	}
	return
}
