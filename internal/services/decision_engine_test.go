package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/logwarden/internal/database"
	"github.com/Wikid82/logwarden/internal/models"
	"github.com/Wikid82/logwarden/internal/rules"
)

type fakeNotifier struct {
	mu         sync.Mutex
	err        error
	alerts     []*models.Alert
	recipients []string
}

func (f *fakeNotifier) NotifyAlertCreated(alert *models.Alert, recipient string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	f.recipients = append(f.recipients, recipient)
	return f.err
}

func scoreMin(v float64) *float64 { return &v }

func testRules(t *testing.T) *rules.Evaluator {
	t.Helper()
	ev, err := rules.Load([]rules.Definition{
		{Name: "high-severity", SeverityAtLeast: "HIGH"},
		{Name: "timeouts", AnomalyScoreMin: scoreMin(0.8), TextContains: []string{"timeout"}},
	})
	require.NoError(t, err)
	return ev
}

func TestDecisionEngine_OneAlertWithAllRuleNames(t *testing.T) {
	db := database.OpenTestDB(t)
	alerts := NewAlertService(db)
	notifier := &fakeNotifier{}
	engine := NewDecisionEngine(testRules(t), alerts, notifier, "ops@example.com")

	rec := &models.LogRecord{ID: "rec-1", SourceID: "src-1"}
	a := &models.Analysis{Severity: models.SeverityCritical, AnomalyScore: 0.9, SummarizedIssue: "DB timeout"}

	out, err := engine.Evaluate(rec, a)
	require.NoError(t, err)
	require.True(t, out.Triggered())
	assert.Equal(t, []string{"high-severity", "timeouts"}, rules.Names(out.Matched))

	stored, err := alerts.ListActive()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"high-severity", "timeouts"}, stored[0].RuleNames)
	assert.Equal(t, models.SeverityCritical, stored[0].Severity)
	assert.Equal(t, "DB timeout", stored[0].Message)
	assert.Equal(t, "src-1", stored[0].SourceID)
	assert.Equal(t, "rec-1", stored[0].LogRecordID)
	assert.True(t, stored[0].Active)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, stored[0].ID, notifier.alerts[0].ID)
	assert.Equal(t, "ops@example.com", notifier.recipients[0])
}

func TestDecisionEngine_NoMatchNoAlert(t *testing.T) {
	db := database.OpenTestDB(t)
	alerts := NewAlertService(db)
	notifier := &fakeNotifier{}
	engine := NewDecisionEngine(testRules(t), alerts, notifier, "ops@example.com")

	out, err := engine.Evaluate(&models.LogRecord{ID: "rec-1"}, &models.Analysis{Severity: models.SeverityLow, AnomalyScore: 0.95, SummarizedIssue: "slow"})
	require.NoError(t, err)
	assert.False(t, out.Triggered())

	all, err := alerts.List(false)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, notifier.alerts)
}

func TestDecisionEngine_NotificationFailureKeepsAlert(t *testing.T) {
	db := database.OpenTestDB(t)
	alerts := NewAlertService(db)
	engine := NewDecisionEngine(testRules(t), alerts, &fakeNotifier{err: errors.New("smtp down")}, "ops@example.com")

	out, err := engine.Evaluate(&models.LogRecord{ID: "rec-1"}, &models.Analysis{Severity: models.SeverityHigh})
	require.NoError(t, err)
	assert.True(t, out.Triggered())

	all, err := alerts.List(false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDecisionEngine_EmptyRecipientStillNotifies(t *testing.T) {
	db := database.OpenTestDB(t)
	notifier := &fakeNotifier{}
	engine := NewDecisionEngine(testRules(t), NewAlertService(db), notifier, "")

	out, err := engine.Evaluate(&models.LogRecord{ID: "rec-1"}, &models.Analysis{Severity: models.SeverityHigh})
	require.NoError(t, err)
	assert.True(t, out.Triggered())
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, out.Alert.ID, notifier.alerts[0].ID)
	assert.Equal(t, []string{""}, notifier.recipients)
}

func TestDecisionEngine_EmptyRecipientKeepsInAppAndChat(t *testing.T) {
	db := database.OpenTestDB(t)
	mailer := &fakeMailer{}
	notifications := NewNotificationService(db, mailer, []string{"generic://hooks.example.com/alerts"})
	var sends atomic.Int32
	notifications.send = func(url, message string) error {
		sends.Add(1)
		return nil
	}
	engine := NewDecisionEngine(testRules(t), NewAlertService(db), notifications, "")

	out, err := engine.Evaluate(&models.LogRecord{ID: "rec-1", SourceID: "src-1"}, &models.Analysis{Severity: models.SeverityHigh, SummarizedIssue: "disk full"})
	require.NoError(t, err)
	require.True(t, out.Triggered())
	notifications.Wait()

	assert.EqualValues(t, 1, sends.Load())
	assert.Empty(t, mailer.sent())

	stored, err := notifications.List(false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, out.Alert.ID, stored[0].AlertID)
}

func TestDecisionEngine_OneAlertPerRecord(t *testing.T) {
	db := database.OpenTestDB(t)
	engine := NewDecisionEngine(testRules(t), NewAlertService(db), nil, "")
	rec := &models.LogRecord{ID: "rec-1"}

	_, err := engine.Evaluate(rec, &models.Analysis{Severity: models.SeverityHigh})
	require.NoError(t, err)
	_, err = engine.Evaluate(rec, &models.Analysis{Severity: models.SeverityHigh})
	assert.Error(t, err)
}

func TestAlertService_Lifecycle(t *testing.T) {
	svc := NewAlertService(database.OpenTestDB(t))
	alert := models.NewAlert(&models.LogRecord{ID: "rec-1", SourceID: "src"}, &models.Analysis{Severity: models.SeverityHigh, SummarizedIssue: "x"}, []string{"r"})
	require.NoError(t, svc.Create(alert))

	require.NoError(t, svc.Deactivate(alert.ID))
	active, err := svc.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := svc.GetByID(alert.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, svc.Activate(alert.ID))
	active, err = svc.ListActive()
	require.NoError(t, err)
	assert.Len(t, active, 1)

	assert.ErrorIs(t, svc.Deactivate("missing"), ErrAlertNotFound)
	_, err = svc.GetByID("missing")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
