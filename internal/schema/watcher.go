package schema

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"exdform/internal/logger"
)

// Watcher reports changes to schema files. Events are queued on Changes
// and never acted on by the watcher itself.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan string
	log     *logger.Logger

	mu       sync.RWMutex
	watching map[string]bool
}

// NewWatcher starts a watcher with no files.
func NewWatcher(log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		changes:  make(chan string, 16),
		log:      logger.OrNop(log).WithComponent("schema-watcher"),
		watching: make(map[string]bool),
	}
	go w.watchLoop()
	return w, nil
}

// Watch adds path to the watched files.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.watching[abs] = true
	w.mu.Unlock()

	// editors replace files, so the directory is watched
	return w.watcher.Add(filepath.Dir(abs))
}

// Changes delivers the absolute path of each changed schema file.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Pending drains queued changes without blocking and returns the distinct
// paths in arrival order.
func (w *Watcher) Pending() []string {
	var out []string
	seen := map[string]bool{}
	for {
		select {
		case p, ok := <-w.changes:
			if !ok {
				return out
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		default:
			return out
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	defer close(w.changes)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			w.mu.RLock()
			watched := w.watching[abs]
			w.mu.RUnlock()
			if !watched {
				continue
			}
			select {
			case w.changes <- abs:
			default:
				w.log.Debugw("change queue full, dropping event", "path", abs)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("watcher error", "error", err)
		}
	}
}
