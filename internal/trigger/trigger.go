// Package trigger implements the per-action trigger evaluation from spec
// §4.F: voice/app/mode regex predicates, AND/OR/negation combination, and
// the voice-prefix strip-and-uppercase side effect.
package trigger

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	LogicAnd = "and"
	LogicOr  = "or"
)

// Fields is the trigger configuration for one action. It mirrors
// config.Triggers but is independent of the config package so this package
// has no dependency on the configuration schema.
type Fields struct {
	Voice string
	Apps  string
	Modes string
	Logic string
}

// Input is everything the evaluator needs for one action against one event.
type Input struct {
	Fields
	Payload          string // the text payload (swResult), before any strip
	Mode             string
	FrontAppName     string
	FrontAppBundleID string
}

// Result is the outcome of evaluating one action's triggers against one event.
type Result struct {
	Matched bool
	// Payload is Input.Payload, or the voice-stripped-and-recapitalized
	// version of it if the voice field matched, per spec §4.F.
	Payload string
}

// Evaluate checks all three trigger fields against in, combining them per
// in.Logic (default "and" if unset).
func Evaluate(in Input) Result {
	voiceEmpty := in.Voice == ""
	appsEmpty := in.Apps == ""
	modesEmpty := in.Modes == ""

	if voiceEmpty && appsEmpty && modesEmpty {
		return Result{Matched: false, Payload: in.Payload}
	}

	voice := evaluateVoice(in.Voice, in.Payload)
	appsMatched := evaluateField(in.Apps, in.FrontAppName, in.FrontAppBundleID)
	modesMatched := evaluateField(in.Modes, in.Mode)

	logic := in.Logic
	if logic == "" {
		logic = LogicAnd
	}

	var matched bool
	if logic == LogicOr {
		matched = (!voiceEmpty && voice.matched) || (!appsEmpty && appsMatched) || (!modesEmpty && modesMatched)
	} else {
		matched = (voiceEmpty || voice.matched) && (appsEmpty || appsMatched) && (modesEmpty || modesMatched)
	}

	payload := in.Payload
	if voice.matched {
		payload = voice.strippedPayload
	}
	return Result{Matched: matched, Payload: payload}
}

type pattern struct {
	re     *regexp.Regexp
	negate bool
}

// compileField splits field on '|' into patterns, compiling each
// case-insensitively and honoring a leading '!' as negation. anchor adds a
// '^' so the pattern only matches at the start of the candidate string (used
// for voice).
func compileField(field string, anchor bool) []pattern {
	if field == "" {
		return nil
	}
	parts := strings.Split(field, "|")
	out := make([]pattern, 0, len(parts))
	for _, p := range parts {
		negate := strings.HasPrefix(p, "!")
		body := strings.TrimPrefix(p, "!")
		if body == "" {
			continue
		}
		prefix := "(?i)"
		if anchor {
			prefix += "^"
		}
		re, err := regexp.Compile(prefix + body)
		if err != nil {
			// An uncompilable pattern never matches and is never negated-match;
			// config validation should have already rejected this at save time.
			continue
		}
		out = append(out, pattern{re: re, negate: negate})
	}
	return out
}

// evaluateField reports whether field "matches" per spec §4.F against any of
// candidates (an app trigger matches the display name or the bundle id; a
// mode trigger has exactly one candidate).
func evaluateField(field string, candidates ...string) bool {
	patterns := compileField(field, false)
	return resolveMatch(patterns, func(re *regexp.Regexp) bool {
		for _, c := range candidates {
			if re.MatchString(c) {
				return true
			}
		}
		return false
	})
}

type voiceOutcome struct {
	matched         bool
	strippedPayload string
}

// evaluateVoice matches from the start of payload; on a positive match it
// strips the matched prefix plus trailing whitespace/punctuation and
// uppercases the next rune, per spec §4.F.
func evaluateVoice(field, payload string) voiceOutcome {
	patterns := compileField(field, true)
	if len(patterns) == 0 {
		return voiceOutcome{matched: false, strippedPayload: payload}
	}

	hasPositive, positiveMatched := false, false
	negatedMatched := false
	var matchEnd int = -1

	for _, p := range patterns {
		if p.negate {
			if p.re.MatchString(payload) {
				negatedMatched = true
			}
			continue
		}
		hasPositive = true
		if loc := p.re.FindStringIndex(payload); loc != nil {
			positiveMatched = true
			if loc[1] > matchEnd {
				matchEnd = loc[1]
			}
		}
	}

	matched := (positiveMatched || !hasPositive) && !negatedMatched
	if !matched || matchEnd < 0 {
		return voiceOutcome{matched: matched, strippedPayload: payload}
	}

	rest := payload[matchEnd:]
	rest = strings.TrimLeft(rest, " \t\n\r.,;:!?-")
	rest = capitalizeFirst(rest)
	return voiceOutcome{matched: true, strippedPayload: rest}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func resolveMatch(patterns []pattern, matchFn func(*regexp.Regexp) bool) bool {
	if len(patterns) == 0 {
		return false
	}
	hasPositive, positiveMatched := false, false
	negatedMatched := false
	for _, p := range patterns {
		m := matchFn(p.re)
		if p.negate {
			if m {
				negatedMatched = true
			}
			continue
		}
		hasPositive = true
		if m {
			positiveMatched = true
		}
	}
	return (positiveMatched || !hasPositive) && !negatedMatched
}
