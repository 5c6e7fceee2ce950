// Package fswatch implements the primitive filesystem watcher contract from
// spec §4.B: watch a path for write/rename/delete, with an on_changed and an
// on_missing callback, and a 1-second polling rewatch loop whenever the path
// is or becomes absent. It is deliberately unaware of what a "path" means to
// its caller (a config file, a meta.json result, a directory) — higher-level
// components (internal/config, internal/recordings) give it meaning.
package fswatch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const pollInterval = 1 * time.Second

// Watcher watches a single path. It watches the path's parent directory
// rather than the path itself, so it can observe the path's own creation —
// fsnotify cannot watch a path that doesn't exist yet — and so it naturally
// handles both a plain delete and an atomic rename-over (editors and the
// dictation app both do the latter when finalizing a file).
type Watcher struct {
	path      string
	onChanged func()
	onMissing func()

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	stopped  bool
	stopPoll chan struct{}
	exists   bool
}

// New creates and starts a Watcher for path. onChanged fires whenever path is
// written, created, or renamed into place. onMissing (optional) fires once
// when path is found to be absent, whether at startup or after a delete.
func New(path string, onChanged func(), onMissing func()) (*Watcher, error) {
	w := &Watcher{
		path:      path,
		onChanged: onChanged,
		onMissing: onMissing,
	}
	if err := w.establish(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Watcher) establish() error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.stopped = false
	w.exists = pathExists(w.path)
	w.mu.Unlock()

	go w.loop(fsw)

	if !w.exists {
		w.startPoll()
		if w.onMissing != nil {
			w.onMissing()
		}
	}
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			w.handleEvent(ev.Op)
		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(op fsnotify.Op) {
	switch {
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		w.exists = false
		w.mu.Unlock()
		w.startPoll()
		if w.onMissing != nil {
			w.onMissing()
		}
	case op&(fsnotify.Write|fsnotify.Create) != 0:
		w.mu.Lock()
		w.exists = true
		w.mu.Unlock()
		if w.onChanged != nil {
			w.onChanged()
		}
	}
}

// startPoll begins a 1-second existence check. It is a no-op if one is
// already running. When the path reappears, onChanged fires once, per spec
// §4.B; the parent-directory watch stays in place throughout.
func (w *Watcher) startPoll() {
	w.mu.Lock()
	if w.stopPoll != nil {
		w.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	w.stopPoll = stop
	w.mu.Unlock()

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if pathExists(w.path) {
					w.mu.Lock()
					w.stopPoll = nil
					w.exists = true
					w.mu.Unlock()
					if w.onChanged != nil {
						w.onChanged()
					}
					return
				}
			}
		}
	}()
}

// Stop tears down the watcher and any in-flight poll loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.stopPoll != nil {
		close(w.stopPoll)
		w.stopPoll = nil
	}
	fsw := w.fsw
	w.mu.Unlock()

	if fsw != nil {
		fsw.Close()
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
