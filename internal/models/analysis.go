package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Analysis is the structured verdict for one LogRecord. It is written once and
// never updated.
type Analysis struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	LogRecordID     string    `gorm:"not null;uniqueIndex" json:"log_record_id"`
	Severity        Severity  `gorm:"size:20;not null;index" json:"severity"`
	Category        string    `gorm:"size:100" json:"category"`
	SummarizedIssue string    `gorm:"type:text" json:"summarized_issue"`
	LikelyCause     string    `gorm:"type:text" json:"likely_cause"`
	Recommendation  string    `gorm:"type:text" json:"recommendation"`
	AnomalyScore    float64   `gorm:"not null" json:"anomaly_score"`
	Provider        string    `gorm:"size:50" json:"provider"`
	AnalyzedAt      time.Time `gorm:"not null;index" json:"analyzed_at"`
}

// ClampScore forces a score into [0,1]. NaN becomes 0.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// SearchText is the lower-cased text rules search for substrings.
func (a *Analysis) SearchText() string {
	return strings.ToLower(a.SummarizedIssue + " " + a.LikelyCause + " " + a.Recommendation)
}

func (a *Analysis) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityInfo
	}
	a.AnomalyScore = ClampScore(a.AnomalyScore)
	return
}
