package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/util"
)

// MaxAlertMessageLength is counted in characters, not bytes.
const MaxAlertMessageLength = 500

// Alert is raised when at least one rule matches an Analysis. There is at most
// one alert per log record.
type Alert struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	Severity    Severity  `gorm:"size:20;not null;index" json:"severity"`
	Message     string    `gorm:"size:500;not null" json:"message"`
	RuleNames   []string  `gorm:"serializer:json;not null" json:"rule_names"`
	Active      bool      `gorm:"not null;index" json:"active"`
	SourceID    string    `gorm:"index" json:"source_id"`
	LogRecordID string    `gorm:"uniqueIndex" json:"log_record_id"`
}

// NewAlert builds an active alert for record a, triggered by ruleNames.
func NewAlert(record *LogRecord, a *Analysis, ruleNames []string) *Alert {
	names := make([]string, len(ruleNames))
	copy(names, ruleNames)
	return &Alert{
		Severity:    a.Severity,
		Message:     util.TruncateRunes(a.SummarizedIssue, MaxAlertMessageLength),
		RuleNames:   names,
		Active:      true,
		SourceID:    record.SourceID,
		LogRecordID: record.ID,
	}
}

func (a *Alert) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.RuleNames == nil {
		a.RuleNames = []string{}
	}
	return
}
