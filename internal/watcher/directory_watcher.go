package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
)

var (
	// ErrWatchClosed means the underlying notifier shut down.
	ErrWatchClosed = errors.New("watch closed")
	// ErrDirectoryGone means the watched directory was removed or renamed.
	ErrDirectoryGone = errors.New("watched directory removed")
)

// DirectoryWatcher watches one directory and feeds new lines of its registered
// files to a LineHandler. Lines of one file are delivered in order.
type DirectoryWatcher struct {
	dir     string
	handler LineHandler
	watcher *fsnotify.Watcher
	log     *logrus.Entry

	mu      sync.RWMutex
	readers map[string]*TailReader
}

func NewDirectoryWatcher(dir string, handler LineHandler) (*DirectoryWatcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(abs); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}

	return &DirectoryWatcher{
		dir:     abs,
		handler: handler,
		watcher: w,
		log:     logger.Component("watcher").WithField("dir", abs),
		readers: make(map[string]*TailReader),
	}, nil
}

func (d *DirectoryWatcher) Dir() string { return d.dir }

// AddFile registers path, which must live directly in the watched directory.
// Reading starts at the file's current end.
func (d *DirectoryWatcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if filepath.Dir(abs) != d.dir {
		return fmt.Errorf("%s is not in watched directory %s", abs, d.dir)
	}

	r := NewTailReader(abs)
	if err := r.Initialize(); err != nil {
		return err
	}

	d.mu.Lock()
	d.readers[abs] = r
	d.mu.Unlock()
	d.log.WithField("file", abs).Info("tailing file")
	return nil
}

func (d *DirectoryWatcher) reader(path string) *TailReader {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readers[filepath.Clean(path)]
}

// Run processes filesystem events until ctx is done, the directory disappears
// or a read fails. It returns nil on cancellation.
func (d *DirectoryWatcher) Run(ctx context.Context) error {
	defer d.watcher.Close()
	metrics.IncWatchedDirectories()
	defer metrics.DecWatchedDirectories()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-d.watcher.Events:
			if !ok {
				return ErrWatchClosed
			}
			if filepath.Clean(ev.Name) == d.dir && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
				return ErrDirectoryGone
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			r := d.reader(ev.Name)
			if r == nil {
				continue
			}
			if err := r.ReadNewLines(d.handler); err != nil {
				return err
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return ErrWatchClosed
			}
			d.log.WithError(err).Warn("watch error")
		}
	}
}

// Close releases the notifier without running the loop.
func (d *DirectoryWatcher) Close() error {
	return d.watcher.Close()
}
