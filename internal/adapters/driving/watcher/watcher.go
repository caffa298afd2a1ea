// Package watcher uploads files dropped into a directory tree.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is uploaded.
const DefaultDebounce = 500 * time.Millisecond

// Upload reports one file the watcher handed to the document service.
type Upload struct {
	Path     string
	Document *domain.Document
	Err      error
}

// Config configures a Watcher.
type Config struct {
	// Root is the directory to watch. Subdirectories are watched too.
	Root string

	// Debounce collapses bursts of events on one path. Zero uses DefaultDebounce.
	Debounce time.Duration

	// IncludeExisting uploads files already present when Watch starts.
	IncludeExisting bool
}

// Watcher uploads new and rewritten files under a root directory.
type Watcher struct {
	root      string
	debounce  time.Duration
	existing  bool
	documents driving.DocumentService

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	fsw     *fsnotify.Watcher
	pending map[string]*pendingUpload
	wg      sync.WaitGroup
}

// pendingUpload is a debounce timer for one path.
type pendingUpload struct {
	timer *time.Timer
}

// New creates a watcher for cfg.Root.
func New(cfg Config, documents driving.DocumentService) *Watcher {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:      cfg.Root,
		debounce:  debounce,
		existing:  cfg.IncludeExisting,
		documents: documents,
		done:      make(chan struct{}),
		pending:   make(map[string]*pendingUpload),
	}
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Watch starts watching and returns a channel of upload results. The
// channel is closed once ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Upload, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, errors.New("watcher is closed")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w.fsw = fsw
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		_ = w.Close()
		return nil, err
	}

	uploads := make(chan Upload, 16)
	go w.loop(ctx, fsw, uploads)
	return uploads, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	w.dropPendingLocked()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, uploads chan<- Upload) {
	defer func() {
		w.mu.Lock()
		w.dropPendingLocked()
		w.mu.Unlock()
		w.wg.Wait()
		close(uploads)
	}()

	if w.existing {
		for _, path := range w.existingFiles() {
			w.schedule(ctx, path, uploads)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.schedule(ctx, path, uploads)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, uploads chan<- Upload) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.pending[path]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}

	p := &pendingUpload{}
	w.wg.Add(1)
	p.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == p {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.upload(ctx, path, uploads)
	})
	w.pending[path] = p
}

// dropPendingLocked cancels timers that have not fired yet.
func (w *Watcher) dropPendingLocked() {
	for path, p := range w.pending {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

// handleFsEvent returns the file to upload for event, if any. New
// directories are added to the watch list.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if isHidden(event.Name) {
		return "", false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("watcher: %v", err)
			}
		}
		return "", false
	}
	if !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

func (w *Watcher) upload(ctx context.Context, path string, uploads chan<- Upload) {
	if ctx.Err() != nil {
		return
	}

	result := Upload{Path: path}
	content, err := os.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("reading %s: %w", path, err)
	} else {
		result.Document, result.Err = w.documents.Upload(ctx, filepath.Base(path), content)
	}

	switch {
	case errors.Is(result.Err, domain.ErrUnsupportedFormat):
		logger.Debug("watcher: skipping %s: %v", path, result.Err)
	case result.Err != nil:
		logger.Warn("watcher: upload %s: %v", path, result.Err)
	default:
		logger.Info("watcher: uploaded %s as %s", path, result.Document.ID)
	}

	select {
	case uploads <- result:
	case <-ctx.Done():
	case <-w.done:
	}
}

// addTree watches dir and every visible directory below it.
func (w *Watcher) addTree(dir string) error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return errors.New("watcher is not started")
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// existingFiles lists visible regular files below the root.
func (w *Watcher) existingFiles() []string {
	var files []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if path == w.root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		logger.Warn("watcher: scanning %s: %v", w.root, err)
	}
	return files
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
