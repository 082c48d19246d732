package watcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// LineHandler receives one complete line read from path, without its line
// terminator.
type LineHandler func(path, line string)

// TailReader remembers how far into a file it has read and hands out only the
// complete lines appended since.
type TailReader struct {
	path   string
	offset int64
}

func NewTailReader(path string) *TailReader {
	return &TailReader{path: path}
}

func (t *TailReader) Path() string { return t.path }

// Offset is the number of bytes already delivered.
func (t *TailReader) Offset() int64 { return t.offset }

// Initialize positions the reader at the current end of the file so existing
// content is not replayed. A file that does not exist yet starts at 0.
func (t *TailReader) Initialize() error {
	fi, err := os.Stat(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		t.offset = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	t.offset = fi.Size()
	return nil
}

// ReadNewLines hands every complete line appended since the last call to
// handler, in file order. A trailing partial line stays unread until its
// newline arrives. If the file shrank it is treated as replaced and read from
// the start.
func (t *TailReader) ReadNewLines(handler LineHandler) error {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		// Rotated away; the next file with this name starts from scratch.
		t.offset = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	size := fi.Size()
	if size < t.offset {
		t.offset = 0
	}
	if size == t.offset {
		return nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", t.path, err)
	}

	r := bufio.NewReader(io.LimitReader(f, size-t.offset))
	for {
		line, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", t.path, err)
		}
		t.offset += int64(len(line))
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		handler(t.path, line)
	}
}
