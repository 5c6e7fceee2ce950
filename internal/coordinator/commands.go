package coordinator

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/errs"
	"github.com/ognistik/macrowhisper-go/internal/ipc"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
)

// iconNone is the config-level sentinel meaning "explicitly no icon",
// distinct from an unset field, per spec §4.H's getIcon wire contract.
const iconNone = ".none"

// noIconSentinel is the wire-level stand-in for "no icon configured" (as
// opposed to ".none"'s "explicitly empty"), since an empty response line is
// otherwise indistinguishable from a protocol error.
const noIconSentinel = " "

// handle is the ipc.Handler: it decodes nothing itself (ipc.Server already
// did) and instead posts the actual command logic onto the event lane so
// every command is totally ordered against result-event dispatch, per
// spec §5.
func (c *Coordinator) handle(cmd ipc.Command) string {
	var response string
	c.post(func() {
		response = c.dispatchCommand(cmd)
	})
	return response
}

func (c *Coordinator) dispatchCommand(cmd ipc.Command) string {
	switch cmd.Command {
	case "reloadConfig":
		return c.cmdReloadConfig()
	case "updateConfig":
		return c.cmdUpdateConfig(cmd.Arguments)
	case "status":
		return c.cmdStatus()
	case "listActions":
		return c.cmdList("")
	case "listInserts":
		return c.cmdList("insert")
	case "listUrls":
		return c.cmdList("url")
	case "listShortcuts":
		return c.cmdList("shortcut")
	case "listShell":
		return c.cmdList("shell")
	case "listAppleScript":
		return c.cmdList("applescript")
	case "addInsert":
		return c.cmdAdd(cmd.Arguments, config.KindInsert)
	case "addUrl":
		return c.cmdAdd(cmd.Arguments, config.KindURL)
	case "addShortcut":
		return c.cmdAdd(cmd.Arguments, config.KindShortcut)
	case "addShell":
		return c.cmdAdd(cmd.Arguments, config.KindShell)
	case "addAppleScript":
		return c.cmdAdd(cmd.Arguments, config.KindAppleScript)
	case "removeAction":
		return c.cmdRemoveAction(cmd.Arguments)
	case "execAction":
		return c.cmdExecAction(cmd.Arguments)
	case "getAction":
		return c.cmdGetAction(cmd.Arguments)
	case "getIcon":
		return c.cmdGetIcon()
	case "autoReturn":
		return c.cmdAutoReturn(cmd.Arguments)
	case "scheduleAction":
		return c.cmdScheduleAction(cmd.Arguments)
	case "quit":
		go func() {
			time.Sleep(200 * time.Millisecond)
			os.Exit(0)
		}()
		return "OK: shutting down"
	case "serviceStatus":
		return c.cmdService(c.svc.Status)
	case "serviceInstall":
		return c.cmdService(c.svc.Install)
	case "serviceStart":
		return c.cmdService(c.svc.Start)
	case "serviceStop":
		return c.cmdService(c.svc.Stop)
	case "serviceRestart":
		return c.cmdService(c.svc.Restart)
	case "serviceUninstall":
		return c.cmdService(c.svc.Uninstall)
	default:
		return fmt.Sprintf("ERROR: unknown command %q", cmd.Command)
	}
}

func argString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func argBool(args map[string]interface{}, key string, def bool) bool {
	v, ok := args[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func (c *Coordinator) cmdReloadConfig() string {
	if err := c.store.Reload(); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK: config reloaded"
}

func (c *Coordinator) cmdUpdateConfig(args map[string]interface{}) string {
	if len(args) == 0 {
		return "ERROR: updateConfig requires at least one key"
	}
	err := c.store.Mutate(func(cfg *config.Config) error {
		return mergeDefaults(cfg, args)
	})
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK: config updated"
}

func (c *Coordinator) cmdStatus() string {
	cfg := c.store.Current()
	scheduled, autoReturn := c.dispatcher.OneShotState()

	_, statErr := os.Stat(c.pipeline.RecordingsDir())

	var b strings.Builder
	fmt.Fprintf(&b, "watch: %s\n", cfg.Defaults.Watch)
	fmt.Fprintf(&b, "recordingsFolderPresent: %v\n", statErr == nil)
	fmt.Fprintf(&b, "activeAction: %s\n", nonEmpty(cfg.Defaults.ActiveAction, "(none)"))
	fmt.Fprintf(&b, "scheduledAction: %s\n", nonEmpty(scheduled, "(none)"))
	fmt.Fprintf(&b, "autoReturnArmed: %v\n", autoReturn)
	fmt.Fprintf(&b, "currentFolder: %s\n", nonEmpty(c.pipeline.CurrentFolder(), "(none)"))
	if cfg.Defaults.History == nil {
		fmt.Fprintf(&b, "history: disabled\n")
	} else {
		fmt.Fprintf(&b, "history: %d day(s)\n", *cfg.Defaults.History)
	}
	fmt.Fprintf(&b, "actions: %d\n", len(config.AllNames(cfg)))
	return strings.TrimRight(b.String(), "\n")
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (c *Coordinator) cmdList(filterKind string) string {
	cfg := c.store.Current()
	names := config.AllNames(cfg)

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, n := range sorted {
		kind := names[n]
		if filterKind != "" && kind.String() != filterKind {
			continue
		}
		line := fmt.Sprintf("%s (%s)", n, kind)
		if n == cfg.Defaults.ActiveAction {
			line += " (active)"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return "(no actions)"
	}
	return out
}

func (c *Coordinator) cmdAdd(args map[string]interface{}, kind config.Kind) string {
	name, ok := argString(args, "name")
	if !ok || name == "" {
		return "ERROR: name is required"
	}

	err := c.store.Mutate(func(cfg *config.Config) error {
		if config.NameTaken(cfg, name) {
			return errs.New(errs.UserInput, fmt.Sprintf("action %q already exists", name))
		}
		switch kind {
		case config.KindInsert:
			cfg.Inserts[name] = &config.Insert{}
		case config.KindURL:
			cfg.Urls[name] = &config.Url{}
		case config.KindShortcut:
			cfg.Shortcuts[name] = &config.Shortcut{}
		case config.KindShell:
			cfg.ScriptsShell[name] = &config.Shell{}
		case config.KindAppleScript:
			cfg.ScriptsAS[name] = &config.AppleScript{}
		}
		return nil
	})
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return fmt.Sprintf("OK: added %s %q", kind, name)
}

func (c *Coordinator) cmdRemoveAction(args map[string]interface{}) string {
	name, ok := argString(args, "name")
	if !ok || name == "" {
		return "ERROR: name is required"
	}

	err := c.store.Mutate(func(cfg *config.Config) error {
		_, _, present := config.Lookup(cfg, name)
		if !present {
			return errs.New(errs.UserInput, fmt.Sprintf("no such action %q", name))
		}
		delete(cfg.Inserts, name)
		delete(cfg.Urls, name)
		delete(cfg.Shortcuts, name)
		delete(cfg.ScriptsShell, name)
		delete(cfg.ScriptsAS, name)
		if cfg.Defaults.ActiveAction == name {
			cfg.Defaults.ActiveAction = ""
		}
		return nil
	})
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return fmt.Sprintf("OK: removed %q", name)
}

func (c *Coordinator) cmdExecAction(args map[string]interface{}) string {
	name, ok := argString(args, "name")
	if !ok || name == "" {
		return "ERROR: name is required"
	}
	if err := c.dispatcher.ExecByName(name, c.pipeline.RecordingsDir()); err != nil {
		return "ERROR: " + err.Error()
	}
	return fmt.Sprintf("OK: executed %q", name)
}

func (c *Coordinator) cmdGetAction(args map[string]interface{}) string {
	name, hasName := argString(args, "name")
	cfg := c.store.Current()
	if !hasName || name == "" {
		if cfg.Defaults.ActiveAction == "" {
			return "(none)"
		}
		return cfg.Defaults.ActiveAction
	}

	ev, ok := recordings.FindNewestValid(c.pipeline.RecordingsDir())
	if !ok {
		return "ERROR: no valid recording found"
	}
	text, err := c.dispatcher.ExpandedText(name, ev)
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return text
}

func (c *Coordinator) cmdGetIcon() string {
	cfg := c.store.Current()
	icon := cfg.Defaults.Icon
	if cfg.Defaults.ActiveAction != "" {
		if _, common, ok := config.Lookup(cfg, cfg.Defaults.ActiveAction); ok && common.Icon != "" {
			icon = common.Icon
		}
	}
	if icon == iconNone {
		return ""
	}
	if icon == "" {
		return noIconSentinel
	}
	return icon
}

func (c *Coordinator) cmdAutoReturn(args map[string]interface{}) string {
	enable := argBool(args, "enable", true)
	c.dispatcher.SetAutoReturn(enable)
	if enable {
		return "OK: auto-return armed"
	}
	return "OK: auto-return disarmed"
}

func (c *Coordinator) cmdScheduleAction(args map[string]interface{}) string {
	name, ok := argString(args, "name")
	if !ok || name == "" {
		return "ERROR: name is required"
	}
	if err := c.dispatcher.ScheduleAction(name); err != nil {
		return "ERROR: " + err.Error()
	}
	return fmt.Sprintf("OK: scheduled %q", name)
}

func (c *Coordinator) cmdService(fn func() (string, error)) string {
	out, err := fn()
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return out
}

// mergeDefaults applies args onto cfg.Defaults by round-tripping through
// JSON, so a partial {key: value} payload only touches the keys present,
// per spec §4.H's "merge into defaults" updateConfig contract.
func mergeDefaults(cfg *config.Config, args map[string]interface{}) error {
	raw, err := json.Marshal(cfg.Defaults)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range args {
		m[k] = v
	}
	merged, err := json.Marshal(m)
	if err != nil {
		return err
	}
	var d config.Defaults
	if err := json.Unmarshal(merged, &d); err != nil {
		return errs.Wrap(errs.UserInput, err, "applying updateConfig")
	}
	cfg.Defaults = d
	return nil
}
