package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/logwarden/internal/models"
)

type fakeResolver struct {
	mu       sync.Mutex
	sources  map[string]*models.LogSource
	inactive map[string]bool
	fail     map[string]bool
}

func (f *fakeResolver) GetOrCreate(path string) (*models.LogSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[path] {
		return nil, errors.New("db down")
	}
	if src, ok := f.sources[path]; ok {
		return src, nil
	}
	src := &models.LogSource{ID: "src-" + filepath.Base(path), Path: path, Active: !f.inactive[path]}
	f.sources[path] = src
	return src, nil
}

type sinkLine struct{ sourceID, line string }

type fakeSink struct {
	mu    sync.Mutex
	lines []sinkLine
}

func (f *fakeSink) HandleLine(sourceID, line string) {
	f.mu.Lock()
	f.lines = append(f.lines, sinkLine{sourceID, line})
	f.mu.Unlock()
}

func (f *fakeSink) snapshot() []sinkLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sinkLine, len(f.lines))
	copy(out, f.lines)
	return out
}

func TestGroupByDirectory(t *testing.T) {
	groups := GroupByDirectory([]string{"/a/x.log", "/b/y.log", "/a/w.log", "/a/x.log"})
	assert.Equal(t, map[string][]string{
		"/a": {"/a/w.log", "/a/x.log"},
		"/b": {"/b/y.log"},
	}, groups)
}

func TestManager_RoutesLinesBySource(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	api := filepath.Join(dirA, "api.log")
	worker := filepath.Join(dirB, "worker.log")
	paused := filepath.Join(dirB, "paused.log")

	resolver := &fakeResolver{
		sources:  map[string]*models.LogSource{},
		inactive: map[string]bool{paused: true},
		fail:     map[string]bool{},
	}
	sink := &fakeSink{}
	m := NewManager(resolver, sink)

	ctx, cancel := context.WithCancel(context.Background())
	started := m.Start(ctx, []string{api, worker, paused, filepath.Join(t.TempDir(), "missing-dir", "x.log")})
	assert.Equal(t, 2, started)

	appendFile(t, api, "api line\n")
	appendFile(t, worker, "worker line\n")
	appendFile(t, paused, "paused line\n")

	assert.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []sinkLine{
		{"src-api.log", "api line"},
		{"src-worker.log", "worker line"},
	}, sink.snapshot())

	cancel()
	waited := make(chan struct{})
	go func() { m.Wait(); close(waited) }()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestManager_ResolverFailureSkipsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	resolver := &fakeResolver{sources: map[string]*models.LogSource{}, fail: map[string]bool{path: true}}
	m := NewManager(resolver, &fakeSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Equal(t, 0, m.Start(ctx, []string{path}))
}
