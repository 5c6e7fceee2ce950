package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ognistik/macrowhisper-go/internal/errs"
)

// Lookup finds the action named name across all five maps, per spec §3's
// disjoint-namespace invariant. ok is false if name is not present anywhere.
func Lookup(cfg *Config, name string) (kind Kind, common *ActionCommon, ok bool) {
	if a, present := cfg.Inserts[name]; present {
		return KindInsert, &a.ActionCommon, true
	}
	if a, present := cfg.Urls[name]; present {
		return KindURL, &a.ActionCommon, true
	}
	if a, present := cfg.Shortcuts[name]; present {
		return KindShortcut, &a.ActionCommon, true
	}
	if a, present := cfg.ScriptsShell[name]; present {
		return KindShell, &a.ActionCommon, true
	}
	if a, present := cfg.ScriptsAS[name]; present {
		return KindAppleScript, &a.ActionCommon, true
	}
	return 0, nil, false
}

// AllNames returns every action name across the five maps, with its kind.
func AllNames(cfg *Config) map[string]Kind {
	out := make(map[string]Kind)
	for n := range cfg.Inserts {
		out[n] = KindInsert
	}
	for n := range cfg.Urls {
		out[n] = KindURL
	}
	for n := range cfg.Shortcuts {
		out[n] = KindShortcut
	}
	for n := range cfg.ScriptsShell {
		out[n] = KindShell
	}
	for n := range cfg.ScriptsAS {
		out[n] = KindAppleScript
	}
	return out
}

// NameTaken reports whether name already exists in any of the five maps,
// per spec §3's disjoint-namespace invariant.
func NameTaken(cfg *Config, name string) bool {
	_, _, ok := Lookup(cfg, name)
	return ok
}

// ValidateTriggerField reports an error if field is non-empty and any of its
// '|'-separated, optionally '!'-negated patterns fails to compile as a
// case-insensitive regex, per spec §3/§4.F.
func ValidateTriggerField(field string) error {
	if field == "" {
		return nil
	}
	for _, pat := range strings.Split(field, "|") {
		pat = strings.TrimPrefix(pat, "!")
		if pat == "" {
			continue
		}
		if _, err := regexp.Compile("(?i)" + pat); err != nil {
			return errs.Wrap(errs.ConfigParse, err, fmt.Sprintf("invalid trigger pattern %q", pat))
		}
	}
	return nil
}

// ValidateTriggers validates all three trigger fields and the logic field.
func ValidateTriggers(t Triggers) error {
	if err := ValidateTriggerField(t.Voice); err != nil {
		return err
	}
	if err := ValidateTriggerField(t.Apps); err != nil {
		return err
	}
	if err := ValidateTriggerField(t.Modes); err != nil {
		return err
	}
	if t.Logic != "" && t.Logic != TriggerLogicAnd && t.Logic != TriggerLogicOr {
		return errs.New(errs.ConfigParse, fmt.Sprintf("triggerLogic must be %q or %q, got %q", TriggerLogicAnd, TriggerLogicOr, t.Logic))
	}
	return nil
}

// ValidateActiveAction reports an error if cfg.Defaults.ActiveAction is set
// but names no existing action, per spec §3's invariant.
func ValidateActiveAction(cfg *Config) error {
	if cfg.Defaults.ActiveAction == "" {
		return nil
	}
	if !NameTaken(cfg, cfg.Defaults.ActiveAction) {
		return errs.New(errs.UserInput, fmt.Sprintf("activeAction %q does not name an existing action", cfg.Defaults.ActiveAction))
	}
	return nil
}

// Validate checks every invariant from spec §3 over the whole document.
func Validate(cfg *Config) error {
	if err := ValidateActiveAction(cfg); err != nil {
		return err
	}

	seen := make(map[string]Kind)
	check := func(name string, kind Kind, t Triggers) error {
		if prior, dup := seen[name]; dup {
			return errs.New(errs.UserInput, fmt.Sprintf("duplicate action name %q (%s and %s)", name, prior, kind))
		}
		seen[name] = kind
		return ValidateTriggers(t)
	}

	for n, a := range cfg.Inserts {
		if err := check(n, KindInsert, a.Triggers); err != nil {
			return err
		}
	}
	for n, a := range cfg.Urls {
		if err := check(n, KindURL, a.Triggers); err != nil {
			return err
		}
	}
	for n, a := range cfg.Shortcuts {
		if err := check(n, KindShortcut, a.Triggers); err != nil {
			return err
		}
	}
	for n, a := range cfg.ScriptsShell {
		if err := check(n, KindShell, a.Triggers); err != nil {
			return err
		}
	}
	for n, a := range cfg.ScriptsAS {
		if err := check(n, KindAppleScript, a.Triggers); err != nil {
			return err
		}
	}

	return nil
}
