package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/logwarden/internal/analysis"
	"github.com/Wikid82/logwarden/internal/config"
	"github.com/Wikid82/logwarden/internal/database"
	"github.com/Wikid82/logwarden/internal/models"
	"github.com/Wikid82/logwarden/internal/rules"
)

const criticalReply = `{"severity":"CRITICAL","category":"payments","summarizedIssue":"payment gateway failing","likelyCause":"upstream outage","recommendation":"fail over","anomalyScore":0.95}`

func testConfig(paths ...string) config.Config {
	app := config.DefaultAppConfig()
	app.WatchPaths = paths
	app.Analysis.Workers = 2
	app.Alerting.Rules = []rules.Definition{{Name: "critical-only", SeverityAtLeast: "CRITICAL"}}
	return config.Config{App: app}
}

func newTestPipeline(t *testing.T, cfg config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, database.OpenTestDB(t),
		WithProviders(analysis.NewRegistry(analysis.NewStaticProvider(criticalReply))))
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)
	return p
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestPipeline_TailToAlert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("ERROR before start\n"), 0o644))

	p := newTestPipeline(t, testConfig(path))
	require.NoError(t, p.Start(context.Background()))

	appendLine(t, path, "ERROR payment gateway timeout")

	require.Eventually(t, func() bool {
		alerts, err := p.Alerts.List(true)
		if err != nil || len(alerts) != 1 {
			return false
		}
		notes, err := p.Notifications.List(false)
		return err == nil && len(notes) == 1
	}, 5*time.Second, 50*time.Millisecond)

	alerts, err := p.Alerts.List(true)
	require.NoError(t, err)
	alert := alerts[0]
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, "payment gateway failing", alert.Message)
	assert.Equal(t, []string{"critical-only"}, alert.RuleNames)

	rec, err := p.Records.FindByID(alert.LogRecordID)
	require.NoError(t, err)
	assert.Equal(t, "ERROR payment gateway timeout", rec.RawText)
	assert.True(t, rec.Analyzed)
	assert.True(t, rec.HasAnomaly)
	require.NotNil(t, rec.Analysis)
	assert.Equal(t, analysis.ProviderStatic, rec.Analysis.Provider)

	// Content present before start is not ingested.
	var count int64
	require.NoError(t, p.db.Model(&models.LogRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	notes, err := p.Notifications.List(false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, alert.ID, notes[0].AlertID)
	assert.Equal(t, models.NotificationTypeError, notes[0].Type)

	p.Shutdown()
	p.Shutdown()
}

func TestPipeline_Rescan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.log")
	content := "ERROR one\n\nERROR two\nERROR one\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := newTestPipeline(t, testConfig())

	n, err := p.Rescan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var records []models.LogRecord
	require.NoError(t, p.db.Find(&records).Error)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.True(t, r.Analyzed, "record %q analyzed", r.RawText)
	}

	alerts, err := p.Alerts.List(false)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	sources, err := p.Sources.List()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, models.AutoSourcePrefix+path, sources[0].Name)

	// A second rescan stores nothing new.
	_, err = p.Rescan(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, p.db.Find(&records).Error)
	assert.Len(t, records, 2)
}

func TestPipeline_RescanLeavesOtherSourcesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.log")
	require.NoError(t, os.WriteFile(path, []byte("ERROR one\n"), 0o644))

	p := newTestPipeline(t, testConfig())

	other := models.NewLogRecord("other-source", "ERROR elsewhere")
	other.IngestedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, p.db.Create(other).Error)

	_, err := p.Rescan(context.Background(), path)
	require.NoError(t, err)

	var stored models.LogRecord
	require.NoError(t, p.db.First(&stored, "id = ?", other.ID).Error)
	assert.False(t, stored.Analyzed, "rescan only analyzes its own source")

	alerts, err := p.Alerts.List(false)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestPipeline_RescanMissingFile(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Rescan(context.Background(), filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestPipeline_InvalidRules(t *testing.T) {
	cfg := testConfig()
	cfg.App.Alerting.Rules = []rules.Definition{{Name: "broken", SeverityAtLeast: "LOUD"}}
	_, err := New(cfg, database.OpenTestDB(t))
	assert.Error(t, err)
}

func TestPipeline_StartWithoutWatchPaths(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()))

	deps := p.RouteDependencies()
	assert.NotNil(t, deps.Gatherer)
	assert.Same(t, p.Alerts, deps.Alerts)
	assert.NotNil(t, deps.Queue)
}

func TestPipeline_WithoutMetrics(t *testing.T) {
	p, err := New(testConfig(), database.OpenTestDB(t), WithoutMetrics())
	require.NoError(t, err)
	defer p.Shutdown()
	assert.Nil(t, p.Metrics)
	assert.Nil(t, p.RouteDependencies().Gatherer)
}
