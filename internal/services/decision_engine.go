package services

import (
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/models"
	"github.com/Wikid82/logwarden/internal/rules"
)

// RuleMatcher returns the rules an analysis satisfies.
type RuleMatcher interface {
	Evaluate(a *models.Analysis) []rules.Rule
}

// AlertNotifier is told about every alert after it is stored.
type AlertNotifier interface {
	NotifyAlertCreated(alert *models.Alert, recipient string) error
}

// DecisionOutcome reports what the engine did for one analysis.
type DecisionOutcome struct {
	Matched []rules.Rule
	Alert   *models.Alert
}

func (o DecisionOutcome) Triggered() bool { return o.Alert != nil }

// DecisionEngine turns matching rules into one alert per analysis.
type DecisionEngine struct {
	rules     RuleMatcher
	alerts    *AlertService
	notifier  AlertNotifier
	recipient string
	log       *logrus.Entry
}

func NewDecisionEngine(matcher RuleMatcher, alerts *AlertService, notifier AlertNotifier, recipient string) *DecisionEngine {
	return &DecisionEngine{
		rules:     matcher,
		alerts:    alerts,
		notifier:  notifier,
		recipient: recipient,
		log:       logger.Component("decision"),
	}
}

// Evaluate creates an alert when at least one rule matches a. The notifier is
// only called once the alert is stored; a notification failure is logged and
// does not undo the alert.
func (e *DecisionEngine) Evaluate(record *models.LogRecord, a *models.Analysis) (DecisionOutcome, error) {
	matched := e.rules.Evaluate(a)
	if len(matched) == 0 {
		return DecisionOutcome{}, nil
	}

	alert := models.NewAlert(record, a, rules.Names(matched))
	if err := e.alerts.Create(alert); err != nil {
		return DecisionOutcome{Matched: matched}, err
	}

	fields := logrus.Fields{
		"alert_id":  alert.ID,
		"record_id": record.ID,
		"severity":  alert.Severity,
		"rules":     alert.RuleNames,
	}
	e.log.WithFields(fields).Info("alert created")

	if e.notifier != nil {
		if err := e.notifier.NotifyAlertCreated(alert, e.recipient); err != nil {
			metrics.IncNotificationFailure()
			e.log.WithError(err).WithFields(fields).Error("alert notification failed")
		}
	}
	return DecisionOutcome{Matched: matched, Alert: alert}, nil
}
