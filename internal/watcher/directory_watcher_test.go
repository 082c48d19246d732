package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) handle(_, line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

func (l *lineRecorder) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func TestDirectoryWatcher_DeliversAppendedLines(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "app.log")
	other := filepath.Join(dir, "other.log")
	appendFile(t, watched, "before start\n")

	rec := &lineRecorder{}
	dw, err := NewDirectoryWatcher(dir, rec.handle)
	require.NoError(t, err)
	require.NoError(t, dw.AddFile(watched))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dw.Run(ctx) }()

	appendFile(t, other, "ignored\n")
	appendFile(t, watched, "first\nsecond\n")
	appendFile(t, watched, "third\n")

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"first", "second", "third"}, rec.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestDirectoryWatcher_AddFileOutsideDirectory(t *testing.T) {
	dw, err := NewDirectoryWatcher(t.TempDir(), func(string, string) {})
	require.NoError(t, err)
	defer dw.Close()

	assert.Error(t, dw.AddFile(filepath.Join(t.TempDir(), "elsewhere.log")))
}

func TestDirectoryWatcher_MissingDirectory(t *testing.T) {
	_, err := NewDirectoryWatcher(filepath.Join(t.TempDir(), "nope"), func(string, string) {})
	assert.Error(t, err)
}

func TestDirectoryWatcher_DirectoryRemovedStopsLoop(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "logs")
	require.NoError(t, os.Mkdir(dir, 0o755))

	dw, err := NewDirectoryWatcher(dir, func(string, string) {})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- dw.Run(context.Background()) }()

	require.NoError(t, os.RemoveAll(dir))
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop after directory removal")
	}
}
