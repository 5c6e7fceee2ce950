// Package recordings implements the parent/recordings watcher (spec §4.C)
// and the recording pipeline (spec §4.D): tracking the newest recording
// sub-folder, detecting and validating its meta.json, and emitting exactly
// one result event per folder.
package recordings

import "time"

// ResultEvent is emitted exactly once per finalized recording folder, per
// spec §3.
type ResultEvent struct {
	FolderPath string
	MetaPath   string
	Meta       map[string]interface{}
	Timestamp  time.Time
}

// Handler receives emitted result events. The pipeline calls it on its own
// goroutine; the daemon's handler posts each event onto the coordinator's
// event lane.
type Handler func(ResultEvent)
