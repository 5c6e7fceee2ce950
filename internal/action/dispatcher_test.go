package action

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/logging"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
)

type fakeInjector struct {
	pasted    []string
	typed     []string
	returns   int
	escapes   int
	clipboard string
	isTextBox bool
}

func (f *fakeInjector) FocusedElementIsTextInput() bool { return f.isTextBox }
func (f *fakeInjector) PressEscape() error               { f.escapes++; return nil }
func (f *fakeInjector) TypeText(text string) error       { f.typed = append(f.typed, text); return nil }
func (f *fakeInjector) Paste(text string) error          { f.pasted = append(f.pasted, text); return nil }
func (f *fakeInjector) PressReturn() error                { f.returns++; return nil }
func (f *fakeInjector) GetClipboard() (string, error)     { return f.clipboard, nil }
func (f *fakeInjector) SetClipboard(text string) error    { f.clipboard = text; return nil }

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) Notify(title, message string) { f.messages = append(f.messages, title+": "+message) }

func newTestDispatcher(t *testing.T, cfg *config.Config) (*Dispatcher, *fakeInjector) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "macrowhisper.json")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	store, err := config.Open(path, logging.New(logging.Silent))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	inj := &fakeInjector{}
	d := New(store, inj, &fakeNotifier{}, logging.New(logging.Silent))
	return d, inj
}

func TestDispatch_TriggeredActionWinsOverActiveDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Inserts["zzLater"] = &config.Insert{ActionCommon: config.ActionCommon{
		Action:   "fallback text",
		Triggers: config.Triggers{Apps: ".*"},
	}}
	cfg.Inserts["aaFirst"] = &config.Insert{ActionCommon: config.ActionCommon{
		Action:   "triggered text",
		Triggers: config.Triggers{Apps: ".*"},
	}}
	cfg.Inserts["normal"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "default text"}}
	cfg.Defaults.ActiveAction = "normal"

	d, inj := newTestDispatcher(t, cfg)

	ev := recordings.ResultEvent{
		FolderPath: t.TempDir(),
		Meta:       map[string]interface{}{"result": "hello", "duration": 3.0},
	}
	d.Dispatch(ev)

	require.Len(t, inj.pasted, 1)
	assert.Equal(t, "triggered text", inj.pasted[0])
}

func TestDispatch_ScheduledBeatsActiveDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Inserts["normal"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "default text"}}
	cfg.Inserts["special"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "scheduled text"}}
	cfg.Defaults.ActiveAction = "normal"

	d, inj := newTestDispatcher(t, cfg)
	require.NoError(t, d.ScheduleAction("special"))

	ev := recordings.ResultEvent{
		FolderPath: t.TempDir(),
		Meta:       map[string]interface{}{"result": "hello", "duration": 3.0},
	}
	d.Dispatch(ev)

	require.Len(t, inj.pasted, 1)
	assert.Equal(t, "scheduled text", inj.pasted[0])

	scheduled, armed := d.OneShotState()
	assert.Empty(t, scheduled)
	assert.False(t, armed)
}

func TestDispatch_ActiveDefaultWhenNothingElseArmed(t *testing.T) {
	cfg := config.Default()
	cfg.Inserts["normal"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "default text"}}
	cfg.Defaults.ActiveAction = "normal"

	d, inj := newTestDispatcher(t, cfg)

	ev := recordings.ResultEvent{
		FolderPath: t.TempDir(),
		Meta:       map[string]interface{}{"result": "hello", "duration": 3.0},
	}
	d.Dispatch(ev)

	require.Len(t, inj.pasted, 1)
	assert.Equal(t, "default text", inj.pasted[0])
}

func TestSetAutoReturn_CancelsScheduledAction(t *testing.T) {
	cfg := config.Default()
	cfg.Inserts["special"] = &config.Insert{ActionCommon: config.ActionCommon{Action: "x"}}
	d, _ := newTestDispatcher(t, cfg)

	require.NoError(t, d.ScheduleAction("special"))
	d.SetAutoReturn(true)

	scheduled, armed := d.OneShotState()
	assert.Empty(t, scheduled)
	assert.True(t, armed)
}
