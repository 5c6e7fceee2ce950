package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ognistik/macrowhisper-go/internal/logging"
)

func TestOpen_WritesDefaultsWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macrowhisper.json")

	store, err := Open(path, logging.New(logging.Silent))
	require.NoError(t, err)
	defer store.Close()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
	assert.Empty(t, store.Current().Defaults.ActiveAction)
}

func TestOpen_MalformedFileKeepsDefaultsAndReportsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macrowhisper.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := Open(path, logging.New(logging.Silent))
	require.Error(t, err)
	require.NotNil(t, store)
	defer store.Close()

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data), "malformed file must not be overwritten")
}

func TestMutate_RejectsInvalidActiveAction(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "macrowhisper.json"), logging.New(logging.Silent))
	require.NoError(t, err)
	defer store.Close()

	err = store.Mutate(func(cfg *Config) error {
		cfg.Defaults.ActiveAction = "doesNotExist"
		return nil
	})
	assert.Error(t, err)
	assert.Empty(t, store.Current().Defaults.ActiveAction)
}

func TestMutate_SavesAtomicallyAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macrowhisper.json")
	store, err := Open(path, logging.New(logging.Silent))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Mutate(func(cfg *Config) error {
		cfg.Inserts["greeting"] = &Insert{ActionCommon: ActionCommon{Action: "hello"}}
		cfg.Defaults.ActiveAction = "greeting"
		return nil
	}))

	reopened, err := Open(path, logging.New(logging.Silent))
	require.NoError(t, err)
	defer reopened.Close()

	cfg := reopened.Current()
	assert.Equal(t, "greeting", cfg.Defaults.ActiveAction)
	require.Contains(t, cfg.Inserts, "greeting")
	assert.Equal(t, "hello", cfg.Inserts["greeting"].Action)
}

func TestValidate_RejectsDuplicateNameAcrossMaps(t *testing.T) {
	cfg := Default()
	cfg.Inserts["dup"] = &Insert{}
	cfg.Urls["dup"] = &Url{}

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RejectsBadTriggerRegex(t *testing.T) {
	cfg := Default()
	cfg.Inserts["broken"] = &Insert{ActionCommon: ActionCommon{
		Triggers: Triggers{Apps: "("},
	}}

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestLookup_FindsActionAcrossAllFiveMaps(t *testing.T) {
	cfg := Default()
	cfg.Shortcuts["runIt"] = &Shortcut{}

	kind, common, ok := Lookup(cfg, "runIt")
	require.True(t, ok)
	assert.Equal(t, KindShortcut, kind)
	assert.NotNil(t, common)

	_, _, ok = Lookup(cfg, "missing")
	assert.False(t, ok)
}

func TestNameTaken_TrueOnlyWhenPresent(t *testing.T) {
	cfg := Default()
	cfg.ScriptsShell["backup"] = &Shell{}

	assert.True(t, NameTaken(cfg, "backup"))
	assert.False(t, NameTaken(cfg, "nope"))
}

func TestExpandTilde_ResolvesHomeRelativePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got := ExpandTilde("~/Documents/macrowhisper")
	assert.Equal(t, filepath.Join(home, "Documents", "macrowhisper"), got)
}
