package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/logwarden/internal/database"
	"github.com/Wikid82/logwarden/internal/models"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingDispatcher) AnalyzeAsync(record *models.LogRecord) {
	r.mu.Lock()
	r.ids = append(r.ids, record.ID)
	r.mu.Unlock()
}

func (r *recordingDispatcher) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func TestLogRecordService_SaveRawLogDedup(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewLogRecordService(db, nil)

	first, err := svc.SaveRawLog("ERROR DB timeout", "src-1")
	require.NoError(t, err)
	second, err := svc.SaveRawLog("ERROR DB timeout", "src-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.SaveRawLog("ERROR DB timeout", "src-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	var count int64
	require.NoError(t, db.Model(&models.LogRecord{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestLogRecordService_SaveRawLogTruncates(t *testing.T) {
	svc := NewLogRecordService(database.OpenTestDB(t), nil)
	long := strings.Repeat("a", models.MaxRawTextLength) + "tail"

	rec, err := svc.SaveRawLog(long, "src")
	require.NoError(t, err)
	assert.Len(t, rec.RawText, models.MaxRawTextLength)

	again, err := svc.SaveRawLog(long+"-different-tail", "src")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID, "lines equal after truncation share a record")
}

func TestLogRecordService_ConcurrentSaveSingleRow(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewLogRecordService(db, nil)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := svc.SaveRawLog("same line", "src")
			if assert.NoError(t, err) {
				ids[i] = rec.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, db.Model(&models.LogRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLogRecordService_HandleLine(t *testing.T) {
	disp := &recordingDispatcher{}
	svc := NewLogRecordService(database.OpenTestDB(t), disp)

	svc.HandleLine("src", "   ")
	svc.HandleLine("src", "WARN disk 91% full")
	assert.Len(t, disp.dispatched(), 1)

	rec, err := svc.FindByID(disp.dispatched()[0])
	require.NoError(t, err)
	assert.Equal(t, "WARN disk 91% full", rec.RawText)
	assert.Nil(t, rec.Analysis)

	_, err = svc.FindByID("nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLogRecordService_IngestFileUpdate(t *testing.T) {
	db := database.OpenTestDB(t)
	disp := &recordingDispatcher{}
	svc := NewLogRecordService(db, disp)

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\n\nline two\r\nline one\n"), 0o644))
	src := &models.LogSource{ID: "src-1", Path: path}

	n, err := svc.IngestFileUpdate(context.Background(), src, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.IngestFileUpdate(context.Background(), src, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var count int64
	require.NoError(t, db.Model(&models.LogRecord{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "rescan never duplicates")

	_, err = svc.IngestFileUpdate(context.Background(), src, filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestLogRecordService_ListPending(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewLogRecordService(db, nil)

	old := models.NewLogRecord("src", "old line")
	old.IngestedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(old).Error)

	fresh := models.NewLogRecord("src", "fresh line")
	require.NoError(t, db.Create(fresh).Error)

	done := models.NewLogRecord("src", "done line")
	done.IngestedAt = time.Now().UTC().Add(-time.Hour)
	done.Analyzed = true
	require.NoError(t, db.Create(done).Error)

	pending, err := svc.ListPending(time.Now().UTC().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.ID, pending[0].ID)
}

func TestLogRecordService_IngestFileUpdateLongLine(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewLogRecordService(db, nil)

	long := strings.Repeat("x", 300*1024)
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"+long+"\nafter-long-line"), 0o644))
	src := &models.LogSource{ID: "src-1", Path: path}

	n, err := svc.IngestFileUpdate(context.Background(), src, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var records []models.LogRecord
	require.NoError(t, db.Order("ingested_at").Find(&records).Error)
	require.Len(t, records, 3)

	texts := map[string]bool{}
	for _, r := range records {
		assert.LessOrEqual(t, len(r.RawText), models.MaxRawTextLength)
		texts[r.RawText] = true
	}
	assert.True(t, texts["first"])
	assert.True(t, texts["after-long-line"], "final line without newline is kept")
	assert.True(t, texts[long[:models.MaxRawTextLength]])
}

func TestLogRecordService_ListPendingForSource(t *testing.T) {
	db := database.OpenTestDB(t)
	svc := NewLogRecordService(db, nil)

	mine := models.NewLogRecord("src-a", "mine")
	mine.IngestedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(mine).Error)

	other := models.NewLogRecord("src-b", "other")
	other.IngestedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(other).Error)

	pending, err := svc.ListPendingForSource("src-a", time.Now().UTC(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	all, err := svc.ListPending(time.Now().UTC(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
