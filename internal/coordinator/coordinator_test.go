package coordinator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ognistik/macrowhisper-go/internal/action"
	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/ipc"
	"github.com/ognistik/macrowhisper-go/internal/logging"
	"github.com/ognistik/macrowhisper-go/internal/notify"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
)

type fakeInjector struct{ pasted []string }

func (f *fakeInjector) FocusedElementIsTextInput() bool { return false }
func (f *fakeInjector) PressEscape() error               { return nil }
func (f *fakeInjector) TypeText(text string) error       { return nil }
func (f *fakeInjector) Paste(text string) error          { f.pasted = append(f.pasted, text); return nil }
func (f *fakeInjector) PressReturn() error                { return nil }
func (f *fakeInjector) GetClipboard() (string, error)     { return "", nil }
func (f *fakeInjector) SetClipboard(text string) error    { return nil }

type fakeService struct{ calls []string }

func (s *fakeService) Status() (string, error)    { s.calls = append(s.calls, "status"); return "stub status", nil }
func (s *fakeService) Install() (string, error)   { s.calls = append(s.calls, "install"); return "installed", nil }
func (s *fakeService) Start() (string, error)     { s.calls = append(s.calls, "start"); return "started", nil }
func (s *fakeService) Stop() (string, error)      { s.calls = append(s.calls, "stop"); return "stopped", nil }
func (s *fakeService) Restart() (string, error)   { s.calls = append(s.calls, "restart"); return "restarted", nil }
func (s *fakeService) Uninstall() (string, error) { s.calls = append(s.calls, "uninstall"); return "uninstalled", nil }

func newTestCoordinator(t *testing.T, cfg *config.Config) *Coordinator {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "macrowhisper.json")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	log := logging.New(logging.Silent)
	store, err := config.Open(path, log)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	dispatcher := action.New(store, &fakeInjector{}, notify.New(log), log)
	pipeline := recordings.New(t.TempDir(), nil, log)
	c := New(store, pipeline, dispatcher, &fakeService{}, filepath.Join(dir, "macrowhisper.sock"), log)
	return c
}

func TestDispatchCommand_StatusReportsActiveAction(t *testing.T) {
	cfg := config.Default()
	cfg.Inserts["greet"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "hi"}}
	cfg.Defaults.ActiveAction = "greet"
	c := newTestCoordinator(t, cfg)

	out := c.dispatchCommand(ipc.Command{Command: "status"})
	assert.Contains(t, out, "activeAction: greet")
	assert.Contains(t, out, "autoReturnArmed: false")
}

func TestDispatchCommand_AddAndRemoveAction(t *testing.T) {
	c := newTestCoordinator(t, config.Default())

	out := c.dispatchCommand(ipc.Command{Command: "addInsert", Arguments: map[string]interface{}{"name": "newOne"}})
	assert.Contains(t, out, "OK")

	list := c.dispatchCommand(ipc.Command{Command: "listInserts"})
	assert.Contains(t, list, "newOne")

	out = c.dispatchCommand(ipc.Command{Command: "addInsert", Arguments: map[string]interface{}{"name": "newOne"}})
	assert.Contains(t, out, "ERROR")

	out = c.dispatchCommand(ipc.Command{Command: "removeAction", Arguments: map[string]interface{}{"name": "newOne"}})
	assert.Contains(t, out, "OK")

	list = c.dispatchCommand(ipc.Command{Command: "listInserts"})
	assert.Equal(t, "(no actions)", list)
}

func TestDispatchCommand_GetIconFallsBackToDefaultIcon(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.Icon = "🎙"
	cfg.Inserts["greet"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "hi"}}
	cfg.Defaults.ActiveAction = "greet"
	c := newTestCoordinator(t, cfg)

	out := c.dispatchCommand(ipc.Command{Command: "getIcon"})
	assert.Equal(t, "🎙", out)
}

func TestDispatchCommand_GetIconNoneIsExplicitEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.Icon = ".none"
	c := newTestCoordinator(t, cfg)

	out := c.dispatchCommand(ipc.Command{Command: "getIcon"})
	assert.Equal(t, "", out)
}

func TestDispatchCommand_ScheduleActionThenAutoReturnCancelsIt(t *testing.T) {
	cfg := config.Default()
	cfg.Inserts["special"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "x"}}
	c := newTestCoordinator(t, cfg)

	out := c.dispatchCommand(ipc.Command{Command: "scheduleAction", Arguments: map[string]interface{}{"name": "special"}})
	assert.Contains(t, out, "OK")

	out = c.dispatchCommand(ipc.Command{Command: "autoReturn", Arguments: map[string]interface{}{"enable": true}})
	assert.Contains(t, out, "armed")

	status := c.dispatchCommand(ipc.Command{Command: "status"})
	assert.Contains(t, status, "scheduledAction: (none)")
	assert.Contains(t, status, "autoReturnArmed: true")
}

func TestDispatchCommand_ServiceDelegation(t *testing.T) {
	c := newTestCoordinator(t, config.Default())
	out := c.dispatchCommand(ipc.Command{Command: "serviceStatus"})
	assert.Equal(t, "stub status", out)
}

func TestDispatchCommand_UnknownCommand(t *testing.T) {
	c := newTestCoordinator(t, config.Default())
	out := c.dispatchCommand(ipc.Command{Command: "bogus"})
	assert.Contains(t, out, "ERROR")
}
