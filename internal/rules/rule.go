package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Wikid82/logwarden/internal/models"
)

var ErrInvalidRule = errors.New("invalid rule definition")

// Definition is the configuration form of a Rule.
type Definition struct {
	Name            string   `yaml:"name"`
	SeverityAtLeast string   `yaml:"severityAtLeast,omitempty"`
	AnomalyScoreMin *float64 `yaml:"anomalyScoreMin,omitempty"`
	TextContains    []string `yaml:"textContains,omitempty"`
	CatchAll        bool     `yaml:"catchAll,omitempty"`
}

// Rule is a conjunction of optional predicates over an Analysis. A rule with
// no predicate matches every analysis.
type Rule struct {
	Name            string
	SeverityAtLeast *models.Severity
	AnomalyScoreMin *float64
	TextContains    []string
	CatchAll        bool
}

// FromDefinition validates def and compiles it into a Rule. Keywords are
// trimmed, lower-cased and blank ones are dropped.
func FromDefinition(def Definition) (Rule, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return Rule{}, fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	r := Rule{Name: name, CatchAll: def.CatchAll}

	if s := strings.TrimSpace(def.SeverityAtLeast); s != "" {
		sev, err := models.ParseSeverity(s)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, name, err)
		}
		r.SeverityAtLeast = &sev
	}

	if def.AnomalyScoreMin != nil {
		v := *def.AnomalyScoreMin
		if v < 0 || v > 1 {
			return Rule{}, fmt.Errorf("%w: rule %q: anomalyScoreMin %v outside [0,1]", ErrInvalidRule, name, v)
		}
		r.AnomalyScoreMin = &v
	}

	for _, kw := range def.TextContains {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			r.TextContains = append(r.TextContains, kw)
		}
	}

	if r.IsEmpty() && !r.CatchAll {
		return Rule{}, fmt.Errorf("%w: rule %q has no conditions; set catchAll to match every analysis", ErrInvalidRule, name)
	}
	return r, nil
}

// IsEmpty reports whether the rule carries no predicate at all.
func (r Rule) IsEmpty() bool {
	return r.SeverityAtLeast == nil && r.AnomalyScoreMin == nil && len(r.TextContains) == 0
}

// Matches applies every present predicate to a; all must hold.
func (r Rule) Matches(a *models.Analysis) bool {
	if a == nil {
		return false
	}
	if r.SeverityAtLeast != nil && !a.Severity.AtLeast(*r.SeverityAtLeast) {
		return false
	}
	if r.AnomalyScoreMin != nil && a.AnomalyScore < *r.AnomalyScoreMin {
		return false
	}
	if len(r.TextContains) > 0 {
		text := a.SearchText()
		found := false
		for _, kw := range r.TextContains {
			if strings.Contains(text, kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r Rule) String() string {
	var parts []string
	if r.SeverityAtLeast != nil {
		parts = append(parts, "severity>="+r.SeverityAtLeast.String())
	}
	if r.AnomalyScoreMin != nil {
		parts = append(parts, fmt.Sprintf("score>=%.2f", *r.AnomalyScoreMin))
	}
	if len(r.TextContains) > 0 {
		parts = append(parts, "text~"+strings.Join(r.TextContains, "|"))
	}
	if len(parts) == 0 {
		return r.Name + ": *"
	}
	return r.Name + ": " + strings.Join(parts, " && ")
}
