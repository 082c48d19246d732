package rules

import (
	"errors"
	"fmt"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/models"
)

// Evaluator holds an immutable, ordered rule set.
type Evaluator struct {
	rules []Rule
}

func NewEvaluator(rs []Rule) *Evaluator {
	cp := make([]Rule, len(rs))
	copy(cp, rs)
	return &Evaluator{rules: cp}
}

// Load compiles every definition and reports all problems at once.
func Load(defs []Definition) (*Evaluator, error) {
	var errs []error
	seen := make(map[string]struct{}, len(defs))
	rs := make([]Rule, 0, len(defs))
	for i, def := range defs {
		r, err := FromDefinition(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[r.Name]; dup {
			errs = append(errs, fmt.Errorf("rules[%d]: %w: duplicate name %q", i, ErrInvalidRule, r.Name))
			continue
		}
		seen[r.Name] = struct{}{}
		rs = append(rs, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewEvaluator(rs), nil
}

// Evaluate returns every rule matching a, in definition order.
func (e *Evaluator) Evaluate(a *models.Analysis) []Rule {
	if e == nil || a == nil {
		return nil
	}
	var matched []Rule
	for _, r := range e.rules {
		if r.Matches(a) {
			logger.Component("decision").WithField("rule", r.Name).Debug("rule triggered")
			matched = append(matched, r)
		}
	}
	return matched
}

// Rules returns a copy of the loaded rule set.
func (e *Evaluator) Rules() []Rule {
	cp := make([]Rule, len(e.rules))
	copy(cp, e.rules)
	return cp
}

func (e *Evaluator) Len() int { return len(e.rules) }

// Names lists the names of rs in order.
func Names(rs []Rule) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name
	}
	return names
}
