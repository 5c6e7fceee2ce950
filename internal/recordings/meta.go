package recordings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// readValidMeta reads and parses path, returning ok == false if the file is
// absent, mid-write (invalid JSON), or does not yet carry a positive
// "duration" — the signal spec §4.D uses to decide a recording is finalized
// rather than still being written by its producer.
func readValidMeta(path string) (map[string]interface{}, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false
	}

	duration, ok := meta["duration"]
	if !ok {
		return nil, false
	}
	d, ok := toFloat(duration)
	if !ok || d <= 0 {
		return nil, false
	}

	return meta, true
}

// FindNewestValid back-scans recordingsDir in creation-time (ModTime) order,
// newest first, for the first folder whose meta.json validates. Used by the
// control socket's execAction command, per spec §4.H, which may need to run
// an action against a result the pipeline already marked processed.
func FindNewestValid(recordingsDir string) (ResultEvent, bool) {
	entries, err := os.ReadDir(recordingsDir)
	if err != nil {
		return ResultEvent{}, false
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
		folders = append(folders, folder{path: filepath.Join(recordingsDir, e.Name()), modTime: info.ModTime()})
	}

	for i := 0; i < len(folders); i++ {
		for j := i + 1; j < len(folders); j++ {
			if folders[j].modTime.After(folders[i].modTime) {
				folders[i], folders[j] = folders[j], folders[i]
			}
		}
	}

	for _, f := range folders {
		metaPath := filepath.Join(f.path, "meta.json")
		if meta, ok := readValidMeta(metaPath); ok {
			return ResultEvent{FolderPath: f.path, MetaPath: metaPath, Meta: meta, Timestamp: time.Now()}, true
		}
	}
	return ResultEvent{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
