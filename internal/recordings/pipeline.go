package recordings

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/fswatch"
	"github.com/ognistik/macrowhisper-go/internal/logging"
)

// Watcher owns the full lifecycle described by spec §4.C/§4.D: it watches
// for <watch>/recordings to appear, then tracks its newest sub-folder and
// emits exactly one result event per folder once meta.json validates.
type Watcher struct {
	root          string
	recordingsDir string
	onResult      Handler
	log           *logging.Logger

	mu            sync.Mutex
	started       bool
	parentWatcher *fswatch.Watcher
	dirWatcher    *fswatch.DirWatcher
	folderWatcher *fswatch.DirWatcher
	currentFolder string
	processed     map[string]bool
}

// New creates a Watcher rooted at root (the daemon's configured watch path).
// It does not start watching until Start is called.
func New(root string, onResult Handler, log *logging.Logger) *Watcher {
	return &Watcher{
		root:          root,
		recordingsDir: filepath.Join(root, "recordings"),
		onResult:      onResult,
		log:           log,
		processed:     make(map[string]bool),
	}
}

// Start creates the watch root if missing and installs the parent watcher,
// per spec §4.C.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return err
	}

	pw, err := fswatch.New(w.recordingsDir, w.onRecordingsAppeared, w.onRecordingsMissing)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.parentWatcher = pw
	w.mu.Unlock()
	if _, err := os.Stat(w.recordingsDir); err == nil {
		w.onRecordingsAppeared()
	}
	return nil
}

// Stop tears down every watcher this pipeline owns.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.parentWatcher != nil {
		w.parentWatcher.Stop()
	}
	w.teardownActive()
}

// teardownActive stops the recordings-dir and folder-level watchers. Caller
// holds w.mu.
func (w *Watcher) teardownActive() {
	if w.dirWatcher != nil {
		w.dirWatcher.Stop()
		w.dirWatcher = nil
	}
	if w.folderWatcher != nil {
		w.folderWatcher.Stop()
		w.folderWatcher = nil
	}
	w.currentFolder = ""
}

// onRecordingsMissing logs once; the pipeline stays armed and the parent
// watcher's own poll loop will call onRecordingsAppeared when it returns.
func (w *Watcher) onRecordingsMissing() {
	w.log.Warn("recordings folder is missing, waiting for it to appear", zap.String("path", w.recordingsDir))
	w.mu.Lock()
	w.teardownActive()
	w.mu.Unlock()
}

// onRecordingsAppeared hands control from the parent watcher to the active
// recording pipeline, per spec §4.C: the newest folder present right now is
// marked already-processed so only the *next* finalized recording fires.
func (w *Watcher) onRecordingsAppeared() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.teardownActive()

	if newest := w.newestFolder(); newest != "" {
		w.markProcessedLocked(newest)
		w.currentFolder = newest
	}

	dw, err := fswatch.NewDir(w.recordingsDir, w.onRecordingsDirEvent, nil)
	if err != nil {
		w.log.Error("failed to watch recordings folder", zap.Error(err))
		return
	}
	w.dirWatcher = dw

	if w.currentFolder != "" {
		w.installFolderWatcherLocked(w.currentFolder)
	}
}

// markProcessedLocked marks folder's meta.json (if present) as already
// processed, so a pre-existing finalized recording never fires. Caller
// holds w.mu.
func (w *Watcher) markProcessedLocked(folder string) {
	meta := filepath.Join(folder, "meta.json")
	if _, err := os.Stat(meta); err == nil {
		w.processed[meta] = true
	}
}

// onRecordingsDirEvent fires on any change inside the recordings directory:
// a new sub-folder appearing, or an existing one being touched. It
// recomputes the newest folder and, if it changed, switches the folder-level
// watcher over to it, per spec §4.D.
func (w *Watcher) onRecordingsDirEvent(name string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	newest := w.newestFolder()
	if newest == "" || newest == w.currentFolder {
		return
	}

	if w.folderWatcher != nil {
		w.folderWatcher.Stop()
		w.folderWatcher = nil
	}
	w.currentFolder = newest
	w.installFolderWatcherLocked(newest)
}

// installFolderWatcherLocked watches inside folder for meta.json activity.
// Caller holds w.mu.
func (w *Watcher) installFolderWatcherLocked(folder string) {
	fw, err := fswatch.NewDir(folder, func(name string, op fsnotify.Op) {
		w.onFolderEvent(folder)
	}, nil)
	if err != nil {
		w.log.Error("failed to watch recording folder", zap.String("folder", folder), zap.Error(err))
		return
	}
	w.folderWatcher = fw
	// A meta.json dropped in the same instant the folder is created would
	// otherwise wait for the next write event; check once immediately.
	w.tryAccept(folder)
}

// onFolderEvent fires on any write inside the current folder.
func (w *Watcher) onFolderEvent(folder string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if folder != w.currentFolder {
		return
	}
	w.tryAccept(folder)
}

// tryAccept reads and validates folder's meta.json, emitting a result event
// on first acceptance. Caller holds w.mu.
func (w *Watcher) tryAccept(folder string) {
	metaPath := filepath.Join(folder, "meta.json")
	if w.processed[metaPath] {
		return
	}

	meta, ok := readValidMeta(metaPath)
	if !ok {
		return // absent, partial, or duration <= 0: retried on the next event
	}

	w.processed[metaPath] = true
	if w.folderWatcher != nil {
		w.folderWatcher.Stop()
		w.folderWatcher = nil
	}

	if w.onResult != nil {
		go w.onResult(ResultEvent{
			FolderPath: folder,
			MetaPath:   metaPath,
			Meta:       meta,
			Timestamp:  time.Now(),
		})
	}
}

// newestFolder returns the sub-folder of the recordings directory with the
// latest modification time, used as a creation-order proxy since Go's
// standard library exposes no portable birth time. Caller holds w.mu.
func (w *Watcher) newestFolder() string {
	entries, err := os.ReadDir(w.recordingsDir)
	if err != nil {
		return ""
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(w.recordingsDir, e.Name())
			newestTime = info.ModTime()
		}
	}
	return newest
}

// SetRoot tears down every watcher this pipeline owns and rebuilds it
// rooted at the new path, for the control socket's updateConfig command
// changing defaults.watch while the daemon is running (spec §2's "(A)
// changes propagate to (D)" requirement). Safe to call only after Start.
func (w *Watcher) SetRoot(root string) error {
	w.mu.Lock()
	if w.parentWatcher != nil {
		w.parentWatcher.Stop()
		w.parentWatcher = nil
	}
	w.teardownActive()
	w.root = root
	w.recordingsDir = filepath.Join(root, "recordings")
	w.processed = make(map[string]bool)
	w.mu.Unlock()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return err
	}

	pw, err := fswatch.New(w.recordingsDir, w.onRecordingsAppeared, w.onRecordingsMissing)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.parentWatcher = pw
	w.mu.Unlock()
	if _, err := os.Stat(w.recordingsDir); err == nil {
		w.onRecordingsAppeared()
	}
	return nil
}

// CurrentFolder returns the folder currently tracked as newest, for the
// status command.
func (w *Watcher) CurrentFolder() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentFolder
}

// RecordingsDir returns the recordings directory path this pipeline watches.
func (w *Watcher) RecordingsDir() string {
	return w.recordingsDir
}
