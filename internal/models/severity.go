package models

import (
	"fmt"
	"strings"
)

// Severity is the ordered classification attached to an Analysis and an Alert.
type Severity string

const (
	SeverityInfo            Severity = "INFO"
	SeverityLow             Severity = "LOW"
	SeverityMedium          Severity = "MEDIUM"
	SeverityHigh            Severity = "HIGH"
	SeverityCritical        Severity = "CRITICAL"
	SeverityUnknownCritical Severity = "UNKNOWN_CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityInfo:            0,
	SeverityLow:             1,
	SeverityMedium:          2,
	SeverityHigh:            3,
	SeverityCritical:        4,
	SeverityUnknownCritical: 5,
}

var severityAliases = map[string]Severity{
	"INFO":     SeverityInfo,
	"NOTICE":   SeverityInfo,
	"DEBUG":    SeverityInfo,
	"LOW":      SeverityLow,
	"LOWER":    SeverityLow,
	"WARN":     SeverityMedium,
	"WARNING":  SeverityMedium,
	"MEDIUM":   SeverityMedium,
	"ERROR":    SeverityHigh,
	"HIGH":     SeverityHigh,
	"FATAL":    SeverityCritical,
	"CRITICAL": SeverityCritical,
}

// Rank returns the position of s in the severity order. Values that are not
// one of the declared constants rank as UNKNOWN_CRITICAL.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityUnknownCritical]
}

// AtLeast reports whether s ranks at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

func (s Severity) String() string { return string(s) }

// NormalizeSeverity maps a free-form severity word, as returned by an analysis
// provider, onto the canonical scale. Unrecognized words map to UNKNOWN_CRITICAL.
func NormalizeSeverity(raw string) Severity {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if s, ok := severityAliases[key]; ok {
		return s
	}
	return SeverityUnknownCritical
}

// ParseSeverity accepts only the canonical names (case-insensitive).
func ParseSeverity(name string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", name)
	}
	return s, nil
}

// Severities returns the canonical values in ascending order.
func Severities() []Severity {
	return []Severity{
		SeverityInfo,
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
		SeverityUnknownCritical,
	}
}
