package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Wikid82/logwarden/internal/models"
)

const ProviderFallback = "fallback"

// Result is a parsed, normalised provider verdict that has not been persisted yet.
type Result struct {
	Severity        models.Severity
	Category        string
	SummarizedIssue string
	LikelyCause     string
	Recommendation  string
	AnomalyScore    float64
	Provider        string
}

// Fallback is used whenever no provider is available or its reply is unusable.
func Fallback() Result {
	return Result{
		Severity:        models.SeverityInfo,
		Category:        "unknown",
		SummarizedIssue: "no summary",
		LikelyCause:     "no cause",
		Recommendation:  "no recommendation",
		AnomalyScore:    0,
		Provider:        ProviderFallback,
	}
}

// IsFallback reports whether r was produced by Fallback.
func (r Result) IsFallback() bool { return r.Provider == ProviderFallback }

// ToAnalysis converts r into an Analysis for the given record.
func (r Result) ToAnalysis(recordID string) *models.Analysis {
	return &models.Analysis{
		LogRecordID:     recordID,
		Severity:        r.Severity,
		Category:        r.Category,
		SummarizedIssue: r.SummarizedIssue,
		LikelyCause:     r.LikelyCause,
		Recommendation:  r.Recommendation,
		AnomalyScore:    models.ClampScore(r.AnomalyScore),
		Provider:        r.Provider,
	}
}

// flexFloat accepts a JSON number or a numeric string. Anything else is 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type wireResult struct {
	Severity        *string   `json:"severity"`
	Category        *string   `json:"category"`
	SummarizedIssue *string   `json:"summarizedIssue"`
	LikelyCause     *string   `json:"likelyCause"`
	Recommendation  *string   `json:"recommendation"`
	AnomalyScore    flexFloat `json:"anomalyScore"`
}

// ParseResponse extracts the JSON object from a provider reply. Replies wrapped
// in Markdown code fences or surrounded by prose are accepted. A missing
// severity means INFO; unrecognised severities mean UNKNOWN_CRITICAL.
func ParseResponse(raw, provider string) (Result, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return Result{}, fmt.Errorf("no JSON object in provider reply")
	}

	var w wireResult
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Result{}, fmt.Errorf("decode provider reply: %w", err)
	}

	res := Result{
		Severity:        models.SeverityInfo,
		Category:        orDefault(w.Category, "unknown"),
		SummarizedIssue: orDefault(w.SummarizedIssue, "no summary"),
		LikelyCause:     orDefault(w.LikelyCause, "no cause"),
		Recommendation:  orDefault(w.Recommendation, "no recommendation"),
		AnomalyScore:    models.ClampScore(float64(w.AnomalyScore)),
		Provider:        provider,
	}
	if w.Severity != nil {
		res.Severity = models.NormalizeSeverity(*w.Severity)
	}
	return res, nil
}

func orDefault(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
