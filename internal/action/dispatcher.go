// Package action implements the Action Dispatcher from spec §4.G: resolving
// which action (if any) answers a result event — triggered, scheduled,
// auto-return, active-default, or none — executing it, and scheduling the
// post-action moveTo side effect on a background worker.
package action

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/errs"
	"github.com/ognistik/macrowhisper-go/internal/frontapp"
	"github.com/ognistik/macrowhisper-go/internal/inject"
	"github.com/ognistik/macrowhisper-go/internal/logging"
	"github.com/ognistik/macrowhisper-go/internal/notify"
	"github.com/ognistik/macrowhisper-go/internal/placeholder"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
	"github.com/ognistik/macrowhisper-go/internal/trigger"
)

// OneShotTimeout is how long an armed auto-return or scheduled action stays
// armed before auto-disarming, per spec §5.
const OneShotTimeout = 30 * time.Second

// Dispatcher resolves and executes one action per result event. Its
// exported methods are called from the coordinator's serialized event lane
// and are safe for that single-threaded use; OneShotState, SetAutoReturn
// and ScheduleAction additionally guard their own state with a mutex since
// they're also reachable directly from control-socket handlers.
type Dispatcher struct {
	store    *config.Store
	injector inject.Injector
	notifier notify.Notifier
	log      *logging.Logger

	mu              sync.Mutex
	scheduledAction string
	scheduledTimer  *time.Timer
	autoReturnArmed bool
	autoReturnTimer *time.Timer

	moveCh chan moveJob
}

// New builds a Dispatcher and starts its moveTo background worker.
func New(store *config.Store, injector inject.Injector, notifier notify.Notifier, log *logging.Logger) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		injector: injector,
		notifier: notifier,
		log:      log,
		moveCh:   make(chan moveJob, 32),
	}
	go d.moveWorker()
	return d
}

// SetAutoReturn arms or disarms auto_return_armed, cancelling any scheduled
// action, per spec §4.H/§5.
func (d *Dispatcher) SetAutoReturn(enable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearScheduledLocked()
	d.clearAutoReturnLocked()
	if !enable {
		return
	}
	d.autoReturnArmed = true
	d.autoReturnTimer = time.AfterFunc(OneShotTimeout, func() {
		d.mu.Lock()
		d.autoReturnArmed = false
		d.autoReturnTimer = nil
		d.mu.Unlock()
	})
}

// ScheduleAction arms scheduled_action = name, cancelling auto-return, per
// spec §4.H/§5. Returns a UserInput error if name does not exist.
func (d *Dispatcher) ScheduleAction(name string) error {
	cfg := d.store.Current()
	if !config.NameTaken(cfg, name) {
		return errs.New(errs.UserInput, fmt.Sprintf("no such action %q", name))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearAutoReturnLocked()
	d.clearScheduledLocked()
	d.scheduledAction = name
	d.scheduledTimer = time.AfterFunc(OneShotTimeout, func() {
		d.mu.Lock()
		d.scheduledAction = ""
		d.scheduledTimer = nil
		d.mu.Unlock()
	})
	return nil
}

// OneShotState reports the currently armed one-shot state, for the status
// command.
func (d *Dispatcher) OneShotState() (scheduledAction string, autoReturnArmed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduledAction, d.autoReturnArmed
}

func (d *Dispatcher) isAutoReturnArmed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autoReturnArmed
}

func (d *Dispatcher) clearScheduledLocked() {
	if d.scheduledTimer != nil {
		d.scheduledTimer.Stop()
		d.scheduledTimer = nil
	}
	d.scheduledAction = ""
}

func (d *Dispatcher) clearAutoReturnLocked() {
	if d.autoReturnTimer != nil {
		d.autoReturnTimer.Stop()
		d.autoReturnTimer = nil
	}
	d.autoReturnArmed = false
}

// consumeOneShot clears whatever one-shot state is currently armed. Spec
// §4.G step 2 requires this after a triggered action executes, even though
// that action was selected independently of the armed state.
func (d *Dispatcher) consumeOneShot() {
	d.mu.Lock()
	d.clearScheduledLocked()
	d.clearAutoReturnLocked()
	d.mu.Unlock()
}

// Dispatch resolves and executes one action for ev, per spec §4.G's
// priority order: triggered > scheduled > auto-return > active-default >
// none, then schedules the moveTo side effect.
func (d *Dispatcher) Dispatch(ev recordings.ResultEvent) {
	cfg := d.store.Current()
	front := frontapp.Capture()

	result := stringifyMeta(ev.Meta["result"])
	llmResult := stringifyMeta(ev.Meta["llmResult"])
	mode := stringifyMeta(ev.Meta["mode"])
	payload := llmResult
	if payload == "" {
		payload = result
	}

	if name, kind, voicePayload, ok := resolveTriggered(cfg, payload, mode, front); ok {
		var override *string
		if voicePayload != payload {
			override = &voicePayload
		}
		d.executeNamed(cfg, name, kind, ev, front, override)
		d.consumeOneShot()
		d.scheduleMoveTo(ev, effectiveMoveTo(cfg, name))
		return
	}

	d.mu.Lock()
	scheduled := d.scheduledAction
	if scheduled != "" {
		d.clearScheduledLocked()
	}
	d.mu.Unlock()

	if scheduled != "" {
		if kind, _, ok := config.Lookup(cfg, scheduled); ok {
			d.executeNamed(cfg, scheduled, kind, ev, front, nil)
			d.scheduleMoveTo(ev, effectiveMoveTo(cfg, scheduled))
		} else {
			d.log.Warn("scheduled action no longer exists", zap.String("action", scheduled))
			d.scheduleMoveTo(ev, cfg.Defaults.MoveTo)
		}
		return
	}

	d.mu.Lock()
	autoReturn := d.autoReturnArmed
	if autoReturn {
		d.clearAutoReturnLocked()
	}
	d.mu.Unlock()

	if autoReturn {
		d.executeAutoReturn(cfg, result)
		d.scheduleMoveTo(ev, cfg.Defaults.MoveTo)
		return
	}

	if cfg.Defaults.ActiveAction != "" {
		if kind, _, ok := config.Lookup(cfg, cfg.Defaults.ActiveAction); ok {
			d.executeNamed(cfg, cfg.Defaults.ActiveAction, kind, ev, front, nil)
			d.scheduleMoveTo(ev, effectiveMoveTo(cfg, cfg.Defaults.ActiveAction))
			return
		}
		d.log.Warn("activeAction no longer exists", zap.String("action", cfg.Defaults.ActiveAction))
	}

	d.scheduleMoveTo(ev, cfg.Defaults.MoveTo)
}

// ExecByName runs name against the newest valid recording found by
// back-scanning recordingsDir, disarming any one-shot state, per spec §4.H's
// execAction command.
func (d *Dispatcher) ExecByName(name, recordingsDir string) error {
	cfg := d.store.Current()
	kind, _, ok := config.Lookup(cfg, name)
	if !ok {
		return errs.New(errs.UserInput, fmt.Sprintf("no such action %q", name))
	}

	ev, ok := recordings.FindNewestValid(recordingsDir)
	if !ok {
		return errs.New(errs.MissingCollaborator, "no valid recording found")
	}

	front := frontapp.Capture()
	d.consumeOneShot()
	d.executeNamed(cfg, name, kind, ev, front, nil)
	d.scheduleMoveTo(ev, effectiveMoveTo(cfg, name))
	return nil
}

// ExpandedText returns name's template expanded against ev, for the
// getAction command.
func (d *Dispatcher) ExpandedText(name string, ev recordings.ResultEvent) (string, error) {
	cfg := d.store.Current()
	kind, common, ok := config.Lookup(cfg, name)
	if !ok {
		return "", errs.New(errs.UserInput, fmt.Sprintf("no such action %q", name))
	}

	front := frontapp.Capture()
	data := &placeholder.Data{
		Meta:      ev.Meta,
		Result:    stringifyMeta(ev.Meta["result"]),
		LlmResult: stringifyMeta(ev.Meta["llmResult"]),
		FrontApp:  front.Name,
	}
	return placeholder.Expand(common.Action, data, placeholderKindFor(kind)), nil
}

func (d *Dispatcher) executeNamed(cfg *config.Config, name string, kind config.Kind, ev recordings.ResultEvent, front frontapp.Info, voiceOverride *string) {
	data := &placeholder.Data{
		Meta:          ev.Meta,
		Result:        stringifyMeta(ev.Meta["result"]),
		LlmResult:     stringifyMeta(ev.Meta["llmResult"]),
		FrontApp:      front.Name,
		VoiceOverride: voiceOverride,
	}

	switch kind {
	case config.KindInsert:
		a, ok := cfg.Inserts[name]
		if ok {
			d.runInsert(a.ActionCommon, data, cfg.Defaults)
		}
	case config.KindURL:
		a, ok := cfg.Urls[name]
		if ok {
			d.runURL(*a, data, cfg.Defaults)
		}
	case config.KindShortcut:
		a, ok := cfg.Shortcuts[name]
		if ok {
			d.runShortcut(name, a.ActionCommon, data, cfg.Defaults)
		}
	case config.KindShell:
		a, ok := cfg.ScriptsShell[name]
		if ok {
			d.runShell(a.ActionCommon, data, cfg.Defaults)
		}
	case config.KindAppleScript:
		a, ok := cfg.ScriptsAS[name]
		if ok {
			d.runAppleScript(a.ActionCommon, data, cfg.Defaults)
		}
	}
}

type candidate struct {
	name    string
	kind    config.Kind
	payload string
}

// resolveTriggered builds the candidate set across all five action maps and
// picks the lexicographically smallest name (case-insensitive), per
// spec §4.F's deterministic-selection rule.
func resolveTriggered(cfg *config.Config, payload, mode string, front frontapp.Info) (name string, kind config.Kind, voicePayload string, ok bool) {
	var candidates []candidate

	collect := func(n string, k config.Kind, t config.Triggers) {
		in := trigger.Input{
			Fields: trigger.Fields{
				Voice: t.Voice,
				Apps:  t.Apps,
				Modes: t.Modes,
				Logic: t.Logic,
			},
			Payload:          payload,
			Mode:             mode,
			FrontAppName:     front.Name,
			FrontAppBundleID: front.BundleID,
		}
		res := trigger.Evaluate(in)
		if res.Matched {
			candidates = append(candidates, candidate{name: n, kind: k, payload: res.Payload})
		}
	}

	for n, a := range cfg.Inserts {
		collect(n, config.KindInsert, a.Triggers)
	}
	for n, a := range cfg.Urls {
		collect(n, config.KindURL, a.Triggers)
	}
	for n, a := range cfg.Shortcuts {
		collect(n, config.KindShortcut, a.Triggers)
	}
	for n, a := range cfg.ScriptsShell {
		collect(n, config.KindShell, a.Triggers)
	}
	for n, a := range cfg.ScriptsAS {
		collect(n, config.KindAppleScript, a.Triggers)
	}

	if len(candidates) == 0 {
		return "", 0, "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return strings.ToLower(candidates[i].name) < strings.ToLower(candidates[j].name)
	})
	best := candidates[0]
	return best.name, best.kind, best.payload, true
}

func placeholderKindFor(k config.Kind) placeholder.ActionKind {
	switch k {
	case config.KindURL:
		return placeholder.KindURL
	case config.KindShell:
		return placeholder.KindShell
	case config.KindAppleScript:
		return placeholder.KindAppleScript
	case config.KindShortcut:
		return placeholder.KindShortcut
	default:
		return placeholder.KindInsert
	}
}

// stringifyMeta reads a meta.json field that spec §3 defines as always a
// JSON string (result, llmResult, mode); a missing or non-string value
// yields the empty string rather than the generic dynamic-value rendering
// internal/placeholder uses for arbitrary keys.
func stringifyMeta(v interface{}) string {
	s, _ := v.(string)
	return s
}

func sleepDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func effectiveDelay(actionDelay, defaultDelay float64) float64 {
	if actionDelay == 0 {
		return defaultDelay
	}
	return actionDelay
}

// effectiveMoveTo resolves name's effective moveTo value: an empty
// per-action moveTo inherits defaults.moveTo, per DESIGN.md's resolution of
// this field's inheritance.
func effectiveMoveTo(cfg *config.Config, name string) string {
	_, common, ok := config.Lookup(cfg, name)
	if !ok || common.MoveTo == "" {
		return cfg.Defaults.MoveTo
	}
	return common.MoveTo
}
