// Package watcher re-splits specification files when they change on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/splitter"
)

var log = logger.ForComponent("watcher")

// FileSplitter is the part of the splitter the watcher drives.
type FileSplitter interface {
	SplitFile(ctx context.Context, path string) (splitter.FileResult, error)
	Accepts(path string) bool
}

type Watcher struct {
	config      Config
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	debouncer   *Debouncer
	splitter    FileSplitter
	dirs        []string

	// hashes holds the content hash of the last successful split per path.
	hashes  map[string]string
	splitMu sync.Mutex

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(config Config, sp FileSplitter) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		splitter:  sp,
		hashes:    make(map[string]string),
	}

	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.onFlush)

	return w, nil
}

// AddDir watches the immediate entries of dir.
func (w *Watcher) AddDir(dir string) error {
	w.fsWatcherMu.Lock()
	err := w.fsWatcher.Add(dir)
	w.fsWatcherMu.Unlock()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.dirs = append(w.dirs, dir)
	w.mu.Unlock()

	log.Info("watching directory", "path", dir)
	return nil
}

// Seed remembers already split files so that events which leave their
// content unchanged do not split them again.
func (w *Watcher) Seed(results []splitter.FileResult) {
	w.splitMu.Lock()
	defer w.splitMu.Unlock()

	for _, res := range results {
		if res.ContentHash != "" {
			w.hashes[res.SpecPath] = res.ContentHash
		}
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	log.Info("starting file watcher", "dirs", len(w.dirs))
	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go w.handleEvents()

	return nil
}

func (w *Watcher) handleEvents() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			log.Debug("file event", "path", event.Name, "op", event.Op.String())

			if fileEvent := w.convertEvent(event); fileEvent != nil {
				w.debouncer.Add(*fileEvent)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	if w.shouldIgnore(event.Name) {
		return nil
	}

	eventType, ok := convertOp(event.Op)
	if !ok {
		return nil
	}

	return &FileEvent{
		Path:      event.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

func (w *Watcher) onFlush(events []FileEvent) {
	w.splitMu.Lock()
	defer w.splitMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	log.Debug("flushing events", "count", len(events))

	for _, event := range events {
		if event.Type.Removes() {
			log.Info("spec file removed, outputs kept", "path", event.Path, "event", event.Type.String())
			delete(w.hashes, event.Path)
			continue
		}
		w.resplit(event.Path)
	}
}

func (w *Watcher) resplit(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("failed to read changed file", "path", path, "error", err)
		return
	}

	hash := splitter.HashContent(data)
	if w.hashes[path] == hash {
		log.Debug("content unchanged, skipping", "path", path)
		return
	}

	res, err := w.splitter.SplitFile(w.ctx, path)
	if err != nil {
		log.Error("split failed", "path", path, "error", err)
		return
	}

	w.hashes[path] = res.ContentHash
	log.Info("re-split file", "path", path, "records", len(res.Outputs), "output", res.OutputDir)
}

func (w *Watcher) shouldIgnore(path string) bool {
	basename := filepath.Base(path)

	if !w.config.WatchHidden && strings.HasPrefix(basename, ".") {
		return true
	}

	for _, pattern := range w.config.IgnorePatterns {
		if match, _ := doublestar.Match(pattern, filepath.ToSlash(path)); match {
			return true
		}
		if match, _ := doublestar.Match(pattern, basename); match {
			return true
		}
	}

	return !w.splitter.Accepts(path)
}

// Stop ends the event loop and waits for a running split to finish.
// Events still being debounced are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.fsWatcherMu.Lock()
		defer w.fsWatcherMu.Unlock()
		return w.fsWatcher.Close()
	}

	log.Info("stopping file watcher")
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	w.debouncer.Stop()

	w.fsWatcherMu.Lock()
	err := w.fsWatcher.Close()
	w.fsWatcherMu.Unlock()

	<-done

	w.splitMu.Lock()
	defer w.splitMu.Unlock()
	return err
}
