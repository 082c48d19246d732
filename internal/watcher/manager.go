package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/models"
	"github.com/Wikid82/logwarden/internal/util"
)

// SourceResolver maps a file path to its registered log source, creating it
// on first sight.
type SourceResolver interface {
	GetOrCreate(path string) (*models.LogSource, error)
}

// LineSink accepts lines attributed to a source.
type LineSink interface {
	HandleLine(sourceID, line string)
}

// Manager starts one DirectoryWatcher per parent directory of the configured
// paths and routes their lines to a LineSink.
type Manager struct {
	resolver SourceResolver
	sink     LineSink
	log      *logrus.Entry

	mu      sync.RWMutex
	sources map[string]string
	wg      sync.WaitGroup
}

func NewManager(resolver SourceResolver, sink LineSink) *Manager {
	return &Manager{
		resolver: resolver,
		sink:     sink,
		log:      logger.Component("watcher"),
		sources:  make(map[string]string),
	}
}

// Start resolves sources for paths and launches the directory loops. Paths
// whose source is inactive are skipped. A directory that cannot be watched is
// logged and does not affect the others. It returns the number of loops started.
func (m *Manager) Start(ctx context.Context, paths []string) int {
	var active []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			m.log.WithError(err).WithField("path", p).Error("cannot resolve watch path")
			continue
		}
		src, err := m.resolver.GetOrCreate(abs)
		if err != nil {
			m.log.WithError(err).WithField("path", abs).Error("cannot register log source")
			continue
		}
		if !src.Active {
			m.log.WithField("path", abs).Info("log source inactive, not watching")
			continue
		}
		m.mu.Lock()
		m.sources[abs] = src.ID
		m.mu.Unlock()
		active = append(active, abs)
	}

	started := 0
	for dir, files := range GroupByDirectory(active) {
		dw, err := NewDirectoryWatcher(dir, m.handleLine)
		if err != nil {
			m.log.WithError(err).WithField("dir", dir).Error("cannot watch directory")
			continue
		}
		registered := 0
		for _, f := range files {
			if err := dw.AddFile(f); err != nil {
				m.log.WithError(err).WithField("file", f).Error("cannot tail file")
				continue
			}
			registered++
		}
		if registered == 0 {
			_ = dw.Close()
			continue
		}

		started++
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			err := dw.Run(ctx)
			switch {
			case err == nil:
				m.log.WithField("dir", dw.Dir()).Debug("watch loop stopped")
			case errors.Is(err, ErrDirectoryGone):
				m.log.WithField("dir", dw.Dir()).Warn("watched directory removed, loop stopped")
			default:
				m.log.WithError(err).WithField("dir", dw.Dir()).Error("watch loop failed")
			}
		}()
	}
	return started
}

func (m *Manager) handleLine(path, line string) {
	m.mu.RLock()
	id, ok := m.sources[path]
	m.mu.RUnlock()
	if !ok {
		m.log.WithFields(logrus.Fields{
			"path": path,
			"line": util.SanitizeForLog(line),
		}).Warn("line from unregistered path dropped")
		return
	}
	m.sink.HandleLine(id, line)
}

// Wait blocks until every directory loop has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// GroupByDirectory buckets paths by parent directory. Files within a bucket
// are sorted and de-duplicated.
func GroupByDirectory(paths []string) map[string][]string {
	groups := make(map[string][]string)
	seen := make(map[string]struct{})
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		dir := filepath.Dir(p)
		groups[dir] = append(groups[dir], p)
	}
	for dir := range groups {
		sort.Strings(groups[dir])
	}
	return groups
}
