package action

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/logging"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
)

// moveSettleDelay is the pause before a moveTo job touches the filesystem,
// per spec §4.G, giving the dictation app time to finish writing the folder.
const moveSettleDelay = 500 * time.Millisecond

type moveJob struct {
	folder string
	moveTo string
}

// scheduleMoveTo enqueues ev's folder for post-action handling. The queue
// has bounded capacity; a full queue drops the job rather than blocking the
// event lane, which would violate spec §5's "no callback may block the
// event lane" rule.
func (d *Dispatcher) scheduleMoveTo(ev recordings.ResultEvent, moveTo string) {
	select {
	case d.moveCh <- moveJob{folder: ev.FolderPath, moveTo: moveTo}:
	default:
		d.log.Warn("moveTo worker queue full, dropping job", zap.String("folder", ev.FolderPath))
	}
}

func (d *Dispatcher) moveWorker() {
	for job := range d.moveCh {
		time.Sleep(moveSettleDelay)
		applyMoveTo(job.folder, job.moveTo, d.log)
	}
}

func applyMoveTo(folder, moveTo string, log *logging.Logger) {
	switch {
	case moveTo == "" || moveTo == config.MoveToNone:
		return
	case moveTo == config.MoveToDelete:
		if err := os.RemoveAll(folder); err != nil {
			log.Warn("failed to delete recording folder", zap.String("folder", folder), zap.Error(err))
		}
	default:
		if err := os.MkdirAll(moveTo, 0o755); err != nil {
			log.Warn("failed to create moveTo directory", zap.String("dir", moveTo), zap.Error(err))
			return
		}
		target := filepath.Join(moveTo, filepath.Base(folder))
		if err := os.RemoveAll(target); err != nil {
			log.Warn("failed to clear existing moveTo target", zap.String("target", target), zap.Error(err))
			return
		}
		if err := os.Rename(folder, target); err != nil {
			log.Warn("failed to move recording folder", zap.String("folder", folder), zap.String("target", target), zap.Error(err))
		}
	}
}
