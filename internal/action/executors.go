package action

import (
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/placeholder"
)

// resolveInsertText computes the literal text an Insert action pastes, per
// spec §3/§4.G: the sentinels .none and .autoPaste bypass template
// expansion entirely.
func resolveInsertText(actionText string, data *placeholder.Data) string {
	switch actionText {
	case "", config.InsertNone:
		return ""
	case config.InsertAutoPaste:
		result := data.Result
		llm := data.LlmResult
		if data.VoiceOverride != nil {
			result = *data.VoiceOverride
			llm = *data.VoiceOverride
		}
		if llm != "" {
			return llm
		}
		return result
	default:
		return placeholder.Expand(actionText, data, placeholder.KindInsert)
	}
}

// runInsert implements Insert execution, per spec §4.G.
func (d *Dispatcher) runInsert(common config.ActionCommon, data *placeholder.Data, defaults config.Defaults) {
	delay := effectiveDelay(common.ActionDelay, defaults.ActionDelay)
	text := resolveInsertText(common.Action, data)

	if strings.TrimSpace(text) == "" {
		time.Sleep(sleepDuration(delay))
		return
	}
	time.Sleep(sleepDuration(delay))

	noEsc := common.NoEsc
	isAutoPaste := common.Action == config.InsertAutoPaste
	shouldEsc := !noEsc && (!isAutoPaste || d.injector.FocusedElementIsTextInput())
	if shouldEsc {
		if err := d.injector.PressEscape(); err != nil {
			d.log.Warn("esc before paste failed", zap.Error(err))
		}
	}

	simKeypress := common.SimKeypress || defaults.SimKeypress
	if simKeypress {
		if err := d.injector.TypeText(text); err != nil {
			d.notifyFailure("insert", err)
		}
	} else {
		d.pasteWithClipboardStrategy(text, common.RestoreClipboard)
	}

	if common.PressReturn || d.isAutoReturnArmed() {
		delay := sleepDuration(defaults.ReturnDelay)
		time.AfterFunc(delay, func() {
			if err := d.injector.PressReturn(); err != nil {
				d.log.Warn("post-paste return failed", zap.Error(err))
			}
		})
	}
}

// pasteWithClipboardStrategy implements spec §4.G's non-simKeypress paste
// strategy: save clipboard (if restoreClipboard), set clipboard to text,
// post Cmd+V, restore after a 300ms tail.
func (d *Dispatcher) pasteWithClipboardStrategy(text string, restoreClipboard bool) {
	var saved string
	var haveSaved bool
	if restoreClipboard {
		if v, err := d.injector.GetClipboard(); err == nil {
			saved, haveSaved = v, true
		}
	}

	if err := d.injector.Paste(text); err != nil {
		d.notifyFailure("insert", err)
		return
	}

	if restoreClipboard && haveSaved {
		go func() {
			time.Sleep(300 * time.Millisecond)
			if err := d.injector.SetClipboard(saved); err != nil {
				d.log.Warn("failed to restore clipboard", zap.Error(err))
			}
		}()
	}
}

// executeAutoReturn implements spec §4.G step 4: paste the raw result
// as-is, then post Return after returnDelay.
func (d *Dispatcher) executeAutoReturn(cfg *config.Config, result string) {
	if strings.TrimSpace(result) == "" {
		return
	}
	d.pasteWithClipboardStrategy(result, cfg.Defaults.RestoreClipboard)

	time.AfterFunc(sleepDuration(cfg.Defaults.ReturnDelay), func() {
		if err := d.injector.PressReturn(); err != nil {
			d.log.Warn("auto-return keypress failed", zap.Error(err))
		}
	})
}

func (d *Dispatcher) runURL(a config.Url, data *placeholder.Data, defaults config.Defaults) {
	time.Sleep(sleepDuration(effectiveDelay(a.ActionDelay, defaults.ActionDelay)))

	url := placeholder.Expand(a.Action, data, placeholder.KindURL)
	if strings.TrimSpace(url) == "" {
		return
	}

	args := make([]string, 0, 4)
	if a.OpenBackground {
		args = append(args, "-g")
	}
	if a.OpenWith != "" {
		args = append(args, "-a", a.OpenWith)
	}
	args = append(args, url)

	if err := exec.Command("open", args...).Run(); err != nil {
		d.log.Error("url action failed", zap.String("url", url), zap.Error(err))
		d.notifier.Notify("Action failed", err.Error())
	}
}

// runShortcut implements Shortcut execution, per spec §4.G: the action's
// own map key doubles as the Shortcuts.app shortcut name to invoke.
func (d *Dispatcher) runShortcut(name string, common config.ActionCommon, data *placeholder.Data, defaults config.Defaults) {
	time.Sleep(sleepDuration(effectiveDelay(common.ActionDelay, defaults.ActionDelay)))

	text := placeholder.Expand(common.Action, data, placeholder.KindShortcut)

	tmpFile, err := os.CreateTemp("", "macrowhisper-"+uuid.NewString()+"-*.txt")
	if err != nil {
		d.log.Error("failed to create shortcut input file", zap.Error(err))
		return
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.WriteString(text); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		d.log.Error("failed to write shortcut input file", zap.Error(err))
		return
	}
	tmpFile.Close()

	if err := exec.Command("shortcuts", "run", name, "-i", tmpPath).Run(); err != nil {
		d.log.Error("shortcut run failed", zap.String("shortcut", name), zap.Error(err))
		d.notifier.Notify("Action failed", err.Error())
	}

	time.AfterFunc(2*time.Second, func() {
		os.Remove(tmpPath)
	})
}

func (d *Dispatcher) runShell(common config.ActionCommon, data *placeholder.Data, defaults config.Defaults) {
	time.Sleep(sleepDuration(effectiveDelay(common.ActionDelay, defaults.ActionDelay)))

	script := placeholder.Expand(common.Action, data, placeholder.KindShell)
	if output, err := exec.Command("/bin/sh", "-c", script).CombinedOutput(); err != nil {
		d.log.Error("shell action failed", zap.Error(err), zap.ByteString("output", output))
		d.notifier.Notify("Action failed", err.Error())
	}
}

func (d *Dispatcher) runAppleScript(common config.ActionCommon, data *placeholder.Data, defaults config.Defaults) {
	time.Sleep(sleepDuration(effectiveDelay(common.ActionDelay, defaults.ActionDelay)))

	script := placeholder.Expand(common.Action, data, placeholder.KindAppleScript)
	if output, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		d.log.Error("applescript action failed", zap.Error(err), zap.ByteString("output", output))
		d.notifier.Notify("Action failed", err.Error())
	}
}

func (d *Dispatcher) notifyFailure(kind string, err error) {
	d.log.Error(kind+" action failed", zap.Error(err))
	d.notifier.Notify("Action failed", err.Error())
}
