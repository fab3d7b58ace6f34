package tailer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/watcher"
)

const (
	outBuffer        = 512
	reconnectRetries = 5
)

// Tailer reads every watched file from its first line and then follows
// appended lines, emitting RawLine values. Offsets live in memory only.
type Tailer struct {
	mu     sync.Mutex
	files  map[string]*trackedFile
	closed bool // set by closeAll; late reconnects must not reopen files
	out    chan model.RawLine
	events <-chan watcher.Event
	watch  *watcher.Watcher
	logger *zap.Logger

	reconnectDelay time.Duration
}

type trackedFile struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial string // bytes after the last newline
}

// New creates a Tailer fed by the given Watcher.
func New(w *watcher.Watcher, logger *zap.Logger) *Tailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tailer{
		files:          make(map[string]*trackedFile),
		out:            make(chan model.RawLine, outBuffer),
		events:         w.Events,
		watch:          w,
		logger:         logger,
		reconnectDelay: time.Second,
	}
}

// Lines returns the channel raw lines are sent on. It is closed when Start returns.
func (t *Tailer) Lines() <-chan model.RawLine {
	return t.out
}

// Start reads existing content, then processes watcher events until the
// context is cancelled or the watcher stops.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)
	defer t.closeAll()

	for _, p := range t.watch.Paths() {
		t.openFile(p)
		t.readNewLines(ctx, p)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.events:
			if !ok {
				return
			}
			t.handleEvent(ctx, ev)
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op.Has(fsnotify.Write):
		t.readNewLines(ctx, ev.Path)

	case ev.Op.Has(fsnotify.Create):
		// A recreated file is a new log; start from its beginning.
		t.closeFile(ev.Path)
		t.openFile(ev.Path)
		t.readNewLines(ctx, ev.Path)

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		t.closeFile(ev.Path)
		go t.reconnect(ctx, ev.Path)
	}
}

func (t *Tailer) openFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	if _, exists := t.files[path]; exists {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.logger.Warn("cannot open log file", zap.String("path", path), zap.Error(err))
		return
	}

	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		reader: bufio.NewReader(f),
	}
}

// readNewLines emits every complete line between the last offset and EOF.
// A trailing fragment without a newline is held until the rest arrives.
func (t *Tailer) readNewLines(ctx context.Context, path string) {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return
	}

	if info, err := tf.file.Stat(); err == nil && info.Size() < tf.offset {
		t.logger.Info("log file truncated, rereading", zap.String("path", path))
		if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
			t.logger.Warn("seek failed", zap.String("path", path), zap.Error(err))
			return
		}
		tf.reader.Reset(tf.file)
		tf.offset = 0
		tf.partial = ""
	}

	for {
		chunk, err := tf.reader.ReadString('\n')
		tf.offset += int64(len(chunk))

		if err != nil {
			tf.partial += chunk
			if !errors.Is(err, io.EOF) {
				t.logger.Warn("read error", zap.String("path", path), zap.Error(err))
			}
			return
		}

		line := strings.TrimRight(tf.partial+chunk, "\r\n")
		tf.partial = ""

		select {
		case t.out <- model.RawLine{Text: line, Source: path}:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a rotated file to reappear.
func (t *Tailer) reconnect(ctx context.Context, path string) {
	for i := 0; i < reconnectRetries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.reconnectDelay):
		}
		if _, err := os.Stat(path); err == nil {
			t.logger.Info("reconnected to rotated file", zap.String("path", path))
			if err := t.watch.ReWatch(path); err != nil {
				t.logger.Warn("rewatch failed", zap.String("path", path), zap.Error(err))
			}
			t.openFile(path)
			return
		}
	}
	t.logger.Warn("gave up reconnecting", zap.String("path", path), zap.Int("retries", reconnectRetries))
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
