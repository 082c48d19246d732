package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogSourceType string

// Only LogSourceTypeFile is ingested today; the others are accepted so that
// sources created by other tools round-trip through the registry.
const (
	LogSourceTypeFile            LogSourceType = "file"
	LogSourceTypeSyslog          LogSourceType = "syslog"
	LogSourceTypeKafka           LogSourceType = "kafka"
	LogSourceTypeHTTPWebhook     LogSourceType = "http_webhook"
	LogSourceTypeWindowsEventLog LogSourceType = "windows_eventlog"
)

const DefaultPollIntervalSec = 60

// AutoSourcePrefix is prepended to the path when a source is registered on first sight.
const AutoSourcePrefix = "auto:"

// LogSource is a named origin of log lines, normally one file on disk.
type LogSource struct {
	ID              string        `gorm:"primaryKey" json:"id"`
	Name            string        `gorm:"size:600;not null" json:"name"`
	Type            LogSourceType `gorm:"size:32;not null;index" json:"type"`
	Path            string        `gorm:"size:500;index" json:"path"`
	Active          bool          `gorm:"not null;index" json:"active"`
	PollIntervalSec int           `gorm:"not null" json:"poll_interval_sec"`
	CreatedAt       time.Time     `json:"created_at"`
}

// NewFileSource returns an active file source named after its path.
func NewFileSource(path string) *LogSource {
	return &LogSource{
		Name:   AutoSourcePrefix + path,
		Type:   LogSourceTypeFile,
		Path:   path,
		Active: true,
	}
}

func (s *LogSource) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Type == "" {
		s.Type = LogSourceTypeFile
	}
	if s.PollIntervalSec <= 0 {
		s.PollIntervalSec = DefaultPollIntervalSec
	}
	return
}
