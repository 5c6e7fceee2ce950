package recordings

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ognistik/macrowhisper-go/internal/logging"
)

func writeMeta(t *testing.T, folder string, duration float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(folder, 0o755))
	content := fmt.Sprintf(`{"duration": %v, "result": "hello world"}`, duration)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "meta.json"), []byte(content), 0o644))
}

func TestReadValidMeta_RejectsZeroDuration(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, 0)
	_, ok := readValidMeta(filepath.Join(dir, "meta.json"))
	assert.False(t, ok)
}

func TestReadValidMeta_RejectsMissingDuration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte(`{"result":"x"}`), 0o644))
	_, ok := readValidMeta(filepath.Join(dir, "meta.json"))
	assert.False(t, ok)
}

func TestReadValidMeta_RejectsPartialWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte(`{"duration": 3.`), 0o644))
	_, ok := readValidMeta(filepath.Join(dir, "meta.json"))
	assert.False(t, ok)
}

func TestReadValidMeta_AcceptsPositiveDuration(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, 3)
	meta, ok := readValidMeta(filepath.Join(dir, "meta.json"))
	require.True(t, ok)
	assert.Equal(t, "hello world", meta["result"])
}

func TestWatcher_EmitsOneResultPerFolder(t *testing.T) {
	root := t.TempDir()
	recDir := filepath.Join(root, "recordings")
	require.NoError(t, os.MkdirAll(recDir, 0o755))

	var events []ResultEvent
	done := make(chan struct{}, 16)

	log := logging.New(logging.Silent)
	w := New(root, func(ev ResultEvent) {
		events = append(events, ev)
		done <- struct{}{}
	}, log)
	require.NoError(t, w.Start())
	defer w.Stop()

	// Give the parent watcher time to notice the pre-existing recordings dir.
	time.Sleep(150 * time.Millisecond)

	folder := filepath.Join(recDir, "20260101-120000")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	time.Sleep(50 * time.Millisecond)
	writeMeta(t, folder, 4)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result event")
	}

	require.Len(t, events, 1)
	assert.Equal(t, folder, events[0].FolderPath)
}

func TestWatcher_SkipsPreExistingFolderOnActivation(t *testing.T) {
	root := t.TempDir()
	recDir := filepath.Join(root, "recordings")
	preexisting := filepath.Join(recDir, "pre-existing")
	writeMeta(t, preexisting, 5)

	log := logging.New(logging.Silent)
	fired := make(chan struct{}, 1)
	w := New(root, func(ev ResultEvent) { fired <- struct{}{} }, log)
	require.NoError(t, w.Start())
	defer w.Stop()

	select {
	case <-fired:
		t.Fatal("result event fired for a folder that existed before activation")
	case <-time.After(300 * time.Millisecond):
	}
}
