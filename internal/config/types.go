package config

// Kind identifies which of the five disjoint action maps an action lives in.
type Kind int

const (
	KindInsert Kind = iota
	KindURL
	KindShortcut
	KindShell
	KindAppleScript
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindURL:
		return "url"
	case KindShortcut:
		return "shortcut"
	case KindShell:
		return "shell"
	case KindAppleScript:
		return "applescript"
	default:
		return "unknown"
	}
}

// Sentinel Insert action bodies, per spec §3.
const (
	InsertNone      = ".none"
	InsertAutoPaste = ".autoPaste"
)

// Sentinel moveTo values, per spec §3/§4.G.
const (
	MoveToDelete = ".delete"
	MoveToNone   = ".none"
)

const (
	TriggerLogicAnd = "and"
	TriggerLogicOr  = "or"
)

// Triggers holds the three regex trigger fields and their combination logic
// shared by every action kind, per spec §3/§4.F.
type Triggers struct {
	Voice string `json:"triggerVoice,omitempty"`
	Apps  string `json:"triggerApps,omitempty"`
	Modes string `json:"triggerModes,omitempty"`
	Logic string `json:"triggerLogic,omitempty"` // "and" or "or"
}

// ActionCommon holds the fields every action record carries, per spec §3.
type ActionCommon struct {
	Action           string  `json:"action"`
	Icon             string  `json:"icon,omitempty"`
	ActionDelay      float64 `json:"actionDelay,omitempty"`
	NoEsc            bool    `json:"noEsc,omitempty"`
	PressReturn      bool    `json:"pressReturn,omitempty"`
	SimKeypress      bool    `json:"simKeypress,omitempty"`
	RestoreClipboard bool    `json:"restoreClipboard,omitempty"`
	MoveTo           string  `json:"moveTo,omitempty"`
	Triggers
}

// Insert types text into the focused application.
type Insert struct {
	ActionCommon
}

// Url opens a URL, optionally in a specific app or in the background.
type Url struct {
	ActionCommon
	OpenWith       string `json:"openWith,omitempty"`
	OpenBackground bool   `json:"openBackground,omitempty"`
}

// Shortcut invokes a named system shortcut.
type Shortcut struct {
	ActionCommon
}

// Shell runs the action template through /bin/sh -c.
type Shell struct {
	ActionCommon
}

// AppleScript runs the action template through the system AppleScript interpreter.
type AppleScript struct {
	ActionCommon
}

// Defaults holds the global settings section of the configuration document.
type Defaults struct {
	Watch             string `json:"watch"`
	ActiveAction      string `json:"activeAction"`
	Icon              string `json:"icon"`
	MoveTo            string `json:"moveTo"`
	NoEsc             bool   `json:"noEsc"`
	SimKeypress       bool   `json:"simKeypress"`
	ActionDelay       float64 `json:"actionDelay"`
	ReturnDelay       float64 `json:"returnDelay"`
	PressReturn       bool    `json:"pressReturn"`
	RestoreClipboard  bool    `json:"restoreClipboard"`
	ClipboardStacking bool    `json:"clipboardStacking"`
	// History is nil when history cleanup is disabled, per spec §3.
	History  *int `json:"history"`
	NoUpdates bool `json:"noUpdates"`
	NoNoti    bool `json:"noNoti"`
}

// Config is the full configuration document, per spec §3.
type Config struct {
	Defaults     Defaults                `json:"defaults"`
	Inserts      map[string]*Insert      `json:"inserts"`
	Urls         map[string]*Url         `json:"urls"`
	Shortcuts    map[string]*Shortcut     `json:"shortcuts"`
	ScriptsShell map[string]*Shell        `json:"scriptsShell"`
	ScriptsAS    map[string]*AppleScript  `json:"scriptsAS"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Defaults: Defaults{
			Watch:             DefaultWatchPath(),
			ActiveAction:      "",
			Icon:              "",
			MoveTo:            "",
			NoEsc:             false,
			SimKeypress:       false,
			ActionDelay:       0.1,
			ReturnDelay:       0.3,
			PressReturn:       false,
			RestoreClipboard:  true,
			ClipboardStacking: false,
			History:           nil,
			NoUpdates:         false,
			NoNoti:            false,
		},
		Inserts:      map[string]*Insert{},
		Urls:         map[string]*Url{},
		Shortcuts:    map[string]*Shortcut{},
		ScriptsShell: map[string]*Shell{},
		ScriptsAS:    map[string]*AppleScript{},
	}
}
