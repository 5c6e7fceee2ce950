package recordings

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/logging"
)

// CleanupInterval is how often the history worker sweeps the recordings
// directory.
const CleanupInterval = 1 * time.Hour

// RunCleanup sweeps recordingsDir once according to history, per spec §3:
//   - history == nil: disabled, no-op
//   - *history == 0: keep only the newest folder, delete every other one
//   - *history > 0: delete folders whose own modification time is older
//     than that many days
func RunCleanup(recordingsDir string, history *int, log *logging.Logger) {
	if history == nil {
		return
	}

	entries, err := os.ReadDir(recordingsDir)
	if err != nil {
		return
	}

	type folder struct {
		path    string
		modTime time.Time
	}
	var folders []folder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		folders = append(folders, folder{
			path:    filepath.Join(recordingsDir, e.Name()),
			modTime: info.ModTime(),
		})
	}

	if *history == 0 {
		if len(folders) <= 1 {
			return
		}
		newest := folders[0]
		for _, f := range folders[1:] {
			if f.modTime.After(newest.modTime) {
				newest = f
			}
		}
		for _, f := range folders {
			if f.path == newest.path {
				continue
			}
			removeFolder(f.path, log)
		}
		return
	}

	cutoff := time.Now().AddDate(0, 0, -*history)
	for _, f := range folders {
		if f.modTime.Before(cutoff) {
			removeFolder(f.path, log)
		}
	}
}

func removeFolder(path string, log *logging.Logger) {
	if err := os.RemoveAll(path); err != nil {
		log.Warn("failed to remove aged recording folder", zap.String("path", path), zap.Error(err))
	}
}

// StartCleanupWorker runs RunCleanup once at startup and then on
// CleanupInterval until stop is closed.
func StartCleanupWorker(recordingsDir string, history func() *int, log *logging.Logger, stop <-chan struct{}) {
	RunCleanup(recordingsDir, history(), log)
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			RunCleanup(recordingsDir, history(), log)
		}
	}
}
