// Package watcher feeds chat exports dropped into a directory to the
// insight pipeline.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/nabava/internal/insight"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Subdirectories that receive handled files.
const (
	ProcessedDir = "processed"
	RejectedDir  = "rejected"
)

const defaultDebounce = 500 * time.Millisecond

// Processor analyzes one chat export.
type Processor interface {
	Process(ctx context.Context, text, source string) (insight.Result, error)
}

// Stats counts handled files.
type Stats struct {
	Processed int
	Rejected  int
}

// Watcher processes .txt files in a directory one at a time, in the order
// they settled. Each file is moved to processed/ or, if analysis failed,
// to rejected/.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	proc     Processor
	log      *logger.Logger
	dir      string
	debounce time.Duration
	pending  map[string]time.Time
	stats    Stats
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// New creates a watcher for dir. A zero debounce uses 500ms.
func New(dir string, debounce time.Duration, proc Processor, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		fsw:      fsw,
		proc:     proc,
		log:      log,
		dir:      dir,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start creates the directories, queues files already present and begins
// watching. It does not block.
func (w *Watcher) Start(ctx context.Context) (err error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		if err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}
	}()

	for _, d := range []string{w.dir, filepath.Join(w.dir, ProcessedDir), filepath.Join(w.dir, RejectedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", w.dir, err)
	}
	w.mu.Lock()
	for _, e := range entries {
		if !e.IsDir() && isChatExport(e.Name()) {
			// Zero time makes existing files due on the first tick.
			w.pending[filepath.Join(w.dir, e.Name())] = time.Time{}
		}
	}
	w.mu.Unlock()

	w.log.Info(w.log.WithField(ctx, "dir", w.dir), "watching chat exports")
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the fs watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.fsw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.log.Error(context.Background(), "closing fs watcher", err)
	}
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error(ctx, "fs watcher error", err)
		case <-ticker.C:
			w.processDue(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) || !isChatExport(event.Name) {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

type dueFile struct {
	path string
	at   time.Time
}

func (w *Watcher) processDue(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var due []dueFile
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			due = append(due, dueFile{path, at})
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if !due[i].at.Equal(due[j].at) {
			return due[i].at.Before(due[j].at)
		}
		return due[i].path < due[j].path
	})

	for _, f := range due {
		if ctx.Err() != nil {
			return
		}
		w.processFile(ctx, f.path)
	}
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	ctx = w.log.WithField(ctx, "file", filepath.Base(path))

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		w.log.Error(ctx, "reading chat export", err)
		return
	}

	dest := ProcessedDir
	res, err := w.proc.Process(ctx, string(data), insight.SourceWatcher)
	if err != nil && ctx.Err() != nil {
		// Interrupted by shutdown; the next Start rescans the file.
		w.log.Debug(ctx, "chat export left for next start")
		return
	}
	if err != nil {
		w.log.Warn(ctx, "chat export rejected", err)
		dest = RejectedDir
	} else {
		w.log.Info(w.log.WithField(ctx, "relevant", res.Relevant), "chat export processed")
	}

	if err := move(path, filepath.Join(w.dir, dest)); err != nil {
		w.log.Error(ctx, "moving chat export", err)
		return
	}

	w.mu.Lock()
	if dest == ProcessedDir {
		w.stats.Processed++
	} else {
		w.stats.Rejected++
	}
	w.mu.Unlock()
}

// move renames path into dir, adding a timestamp if the name is taken.
func move(path, dir string) error {
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(filepath.Base(path), ext)
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, time.Now().UnixNano(), ext))
	}
	return os.Rename(path, target)
}

func isChatExport(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}
