// Package sync notices writes made to the database by other processes and
// asks the tracker to adopt them.
package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Syncer adopts a foreign write and reports whether anything changed.
type Syncer interface {
	Sync(ctx context.Context) (bool, error)
}

// ReloadedMsg is a tea.Msg sent when the collection was replaced by a
// foreign write, or when checking for one failed.
type ReloadedMsg struct {
	At  time.Time
	Err error
}

const (
	// syncTimeout bounds a single Sync call.
	syncTimeout = 5 * time.Second

	defaultDebounce = 250 * time.Millisecond
	defaultInterval = 30 * time.Second
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before a sync.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithInterval sets the fallback poll interval. Zero disables polling.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher watches the database file and its WAL companions.
type Watcher struct {
	syncer   Syncer
	dir      string
	base     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	interval time.Duration
	logger   *zap.Logger

	resultCh chan ReloadedMsg
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu      gosync.Mutex
	running bool
	stopped bool
}

// New creates a Watcher for the database at dbPath. An in-memory database
// has no file, so only the fallback poll applies to it.
func New(dbPath string, s Syncer, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		syncer:   s,
		debounce: defaultDebounce,
		interval: defaultInterval,
		logger:   zap.NewNop(),
		resultCh: make(chan ReloadedMsg, 16),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("sync")

	if dbPath != "" && dbPath != ":memory:" {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		w.fsw = fsw
		w.dir = filepath.Dir(dbPath)
		w.base = filepath.Base(dbPath)
	}
	return w, nil
}

// Start begins watching and returns a tea.Cmd delivering the first
// ReloadedMsg. Calling Start twice is a no-op returning nil.
func (w *Watcher) Start(ctx context.Context) tea.Cmd {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if w.fsw != nil {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			w.logger.Warn("cannot create database directory", zap.String("dir", w.dir), zap.Error(err))
		}
		if err := w.fsw.Add(w.dir); err != nil {
			w.logger.Warn("file watch unavailable, polling only", zap.String("dir", w.dir), zap.Error(err))
		} else {
			w.logger.Debug("watching database", zap.String("dir", w.dir), zap.String("file", w.base))
		}
	}

	go w.run(ctx)
	return w.WaitForNextResult()
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	if wasRunning {
		<-w.doneCh
	}
	if w.fsw != nil {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing file watcher", zap.Error(err))
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next ReloadedMsg.
// Call it again after handling each message to keep listening.
func (w *Watcher) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.resultCh:
			return msg
		case <-w.stopCh:
			return nil
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fsw != nil {
		events = w.fsw.Events
		errs = w.fsw.Errors
	}

	var poll <-chan time.Time
	if w.interval > 0 {
		t := time.NewTicker(w.interval)
		defer t.Stop()
		poll = t.C
	}

	debounce := time.NewTimer(w.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if w.relevant(ev) {
				debounce.Reset(w.debounce)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-debounce.C:
			w.check(ctx)
		case <-poll:
			w.check(ctx)
		}
	}
}

// relevant reports whether ev touches the database or its -wal/-shm files.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), w.base)
}

func (w *Watcher) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	changed, err := w.syncer.Sync(ctx)
	switch {
	case err != nil:
		w.logger.Warn("sync failed", zap.Error(err))
		w.send(ReloadedMsg{At: time.Now(), Err: err})
	case changed:
		w.send(ReloadedMsg{At: time.Now()})
	}
}

// send delivers msg without blocking; it is dropped when nobody listens.
func (w *Watcher) send(msg ReloadedMsg) {
	select {
	case w.resultCh <- msg:
	default:
	}
}
