// Package inject implements the InputInjector collaborator from spec §4.G:
// ESC/paste/keystroke/Return delivery into the focused application and
// clipboard save/restore, adapted from the teacher's wl-copy/wtype-based
// Injector onto the macOS automation primitives (pbcopy/pbpaste, and
// System Events via osascript) this spec's AppleScript/Shortcuts-centric
// action surface assumes.
package inject

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Injector is the abstract capability the Action Dispatcher needs from the
// host input stack. Each call blocks until the underlying command finishes;
// the Action Dispatcher makes these calls on the event lane during dispatch.
type Injector interface {
	// FocusedElementIsTextInput reports whether the current UI focus target
	// accepts text input, best-effort. Used to decide whether an ESC
	// keypress precedes a `.autoPaste` paste.
	FocusedElementIsTextInput() bool
	// PressEscape posts an ESC keystroke.
	PressEscape() error
	// TypeText synthesizes keystrokes character by character, interpreting
	// "\n" as a Return keypress, for simKeypress paste.
	TypeText(text string) error
	// Paste sets the clipboard to text and posts Cmd+V.
	Paste(text string) error
	// PressReturn posts a Return keypress.
	PressReturn() error
	// GetClipboard returns the current clipboard contents.
	GetClipboard() (string, error)
	// SetClipboard replaces the clipboard contents.
	SetClipboard(text string) error
}

// SystemInjector drives osascript's "System Events" and pbcopy/pbpaste.
// It carries no state; every call shells out fresh.
type SystemInjector struct{}

// New returns the default SystemInjector.
func New() *SystemInjector {
	return &SystemInjector{}
}

// FocusedElementIsTextInput asks System Events for the focused element's
// accessibility role. Best-effort: any failure (no accessibility
// permission, no focused element) is treated as "not a text field", which
// is the safer default since it skips the ESC rather than risk dismissing
// something unrelated.
func (s *SystemInjector) FocusedElementIsTextInput() bool {
	script := `tell application "System Events"
		set theRole to ""
		try
			set theRole to role of (value of attribute "AXFocusedUIElement" of (first application process whose frontmost is true))
		end try
		return theRole
	end tell`
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return false
	}
	role := strings.TrimSpace(string(out))
	switch role {
	case "AXTextField", "AXTextArea", "AXComboBox", "AXSearchField":
		return true
	default:
		return false
	}
}

// PressEscape posts key code 53 (Escape).
func (s *SystemInjector) PressEscape() error {
	return runKeyCode(53)
}

// PressReturn posts key code 36 (Return).
func (s *SystemInjector) PressReturn() error {
	return runKeyCode(36)
}

// TypeText synthesizes the text one character at a time so layout-specific
// keystrokes behave the same as a real typist, translating literal
// newlines into Return keypresses.
func (s *SystemInjector) TypeText(text string) error {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			if err := s.PressReturn(); err != nil {
				return err
			}
		}
		if line != "" {
			script := fmt.Sprintf(`tell application "System Events" to keystroke %s`, quoteAppleScriptString(line))
			if err := exec.Command("osascript", "-e", script).Run(); err != nil {
				return fmt.Errorf("simulated keystroke failed: %w", err)
			}
		}
	}
	return nil
}

// Paste copies text to the clipboard and posts Cmd+V.
func (s *SystemInjector) Paste(text string) error {
	if err := s.SetClipboard(text); err != nil {
		return err
	}
	script := `tell application "System Events" to keystroke "v" using command down`
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("paste keystroke failed: %w", err)
	}
	return nil
}

// GetClipboard reads the clipboard via pbpaste.
func (s *SystemInjector) GetClipboard() (string, error) {
	out, err := exec.Command("pbpaste").Output()
	if err != nil {
		return "", fmt.Errorf("pbpaste failed: %w", err)
	}
	return string(out), nil
}

// SetClipboard writes the clipboard via pbcopy.
func (s *SystemInjector) SetClipboard(text string) error {
	cmd := exec.Command("pbcopy")
	cmd.Stdin = bytes.NewBufferString(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pbcopy failed: %w", err)
	}
	return nil
}

func runKeyCode(code int) error {
	script := fmt.Sprintf(`tell application "System Events" to key code %d`, code)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("key code %d failed: %w", code, err)
	}
	return nil
}

// quoteAppleScriptString renders s as a double-quoted AppleScript string
// literal, escaping backslashes and quotes.
func quoteAppleScriptString(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
	return `"` + escaped + `"`
}
