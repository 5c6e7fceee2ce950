package fswatch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher watches every entry inside a directory (creations, writes,
// renames, removals of its children), forwarding the raw events. Used by
// the recording pipeline (spec §4.D) to notice new recording sub-folders
// and, inside a folder, writes to meta.json. Like Watcher, it rewatches the
// directory itself on a 1-second poll if the directory disappears.
type DirWatcher struct {
	dir     string
	onEvent func(name string, op fsnotify.Op)
	onMissing func()

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	stopped  bool
	stopPoll chan struct{}
}

// NewDir creates and starts a DirWatcher for dir. If dir does not yet exist,
// onMissing (optional) fires immediately and a poll loop waits for it.
func NewDir(dir string, onEvent func(name string, op fsnotify.Op), onMissing func()) (*DirWatcher, error) {
	w := &DirWatcher{dir: dir, onEvent: onEvent, onMissing: onMissing}
	if err := w.establish(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *DirWatcher) establish() error {
	if !pathExists(w.dir) {
		w.startPoll()
		if w.onMissing != nil {
			w.onMissing()
		}
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.stopped = false
	w.mu.Unlock()

	go w.loop(fsw)
	return nil
}

func (w *DirWatcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !pathExists(w.dir) {
				w.mu.Lock()
				w.fsw = nil
				w.mu.Unlock()
				fsw.Close()
				w.startPoll()
				if w.onMissing != nil {
					w.onMissing()
				}
				return
			}
			if w.onEvent != nil {
				w.onEvent(ev.Name, ev.Op)
			}
		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *DirWatcher) startPoll() {
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
				if pathExists(w.dir) {
					w.mu.Lock()
					w.stopPoll = nil
					w.mu.Unlock()
					if err := w.reestablishWatch(); err == nil && w.onEvent != nil {
						// Treat reappearance itself as a change worth reacting to.
						w.onEvent(w.dir, fsnotify.Create)
					}
					return
				}
			}
		}
	}()
}

func (w *DirWatcher) reestablishWatch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()
	go w.loop(fsw)
	return nil
}

// Stop tears down the watcher and any in-flight poll loop.
func (w *DirWatcher) Stop() {
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
