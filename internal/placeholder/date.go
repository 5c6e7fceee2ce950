package placeholder

import (
	"regexp"
	"strings"
	"time"
)

// commonTemplates maps a handful of frequently-used CLDR-style date
// templates (the kind NSDateFormatter's dateFormat(fromTemplate:) accepts)
// to a Go reference-time layout. Full CLDR template resolution needs locale
// data this repository does not carry; these cover the templates an action
// author is realistically going to type.
var commonTemplates = map[string]string{
	"yMMMd":     "Jan 2, 2006",
	"yMMMMd":    "January 2, 2006",
	"yMd":       "1/2/2006",
	"Hm":        "15:04",
	"hm":        "3:04 PM",
	"yMMMdHm":   "Jan 2, 2006 15:04",
	"EEEE":      "Monday",
	"EEE":       "Mon",
}

var lettersOnly = regexp.MustCompile(`^[A-Za-z]+$`)

// formatDate implements {{date}} / {{date:fmt}}, per spec §4.E:
//   - fmt == "" or "short": short date in the fixed form 1/2/06
//   - fmt == "long": long date in the fixed form January 2, 2006
//     (neither form consults the user's locale)
//   - fmt is letters-only: a named template (looked up, or built token by token)
//   - otherwise: a literal date-format pattern
func formatDate(fmtSpec string) string {
	now := time.Now()

	switch fmtSpec {
	case "", "short":
		return now.Format("1/2/06")
	case "long":
		return now.Format("January 2, 2006")
	}

	if lettersOnly.MatchString(fmtSpec) {
		if layout, ok := commonTemplates[fmtSpec]; ok {
			return now.Format(layout)
		}
		return now.Format(templateToLayout(fmtSpec))
	}

	return now.Format(patternToLayout(fmtSpec))
}

// templateToLayout converts an unrecognized letters-only CLDR template into a
// Go layout by converting each run of repeated letters in place, with no
// separators invented between runs.
func templateToLayout(tpl string) string {
	return patternToLayout(tpl)
}

// patternToLayout converts a literal CLDR/Apple-style date pattern (e.g.
// "yyyy-MM-dd") into a Go reference-time layout, token run by token run,
// passing through any separator characters (punctuation, spaces) unchanged.
func patternToLayout(pattern string) string {
	var b strings.Builder
	runeSlice := []rune(pattern)
	i := 0
	for i < len(runeSlice) {
		c := runeSlice[i]
		j := i
		for j < len(runeSlice) && runeSlice[j] == c {
			j++
		}
		run := string(runeSlice[i:j])
		b.WriteString(tokenToLayout(c, len(run)))
		i = j
	}
	return b.String()
}

func tokenToLayout(c rune, n int) string {
	switch c {
	case 'y':
		if n >= 4 {
			return "2006"
		}
		return "06"
	case 'M':
		switch {
		case n >= 4:
			return "January"
		case n == 3:
			return "Jan"
		case n == 2:
			return "01"
		default:
			return "1"
		}
	case 'd':
		if n >= 2 {
			return "02"
		}
		return "2"
	case 'E':
		if n >= 4 {
			return "Monday"
		}
		return "Mon"
	case 'H':
		return "15"
	case 'h':
		if n >= 2 {
			return "03"
		}
		return "3"
	case 'm':
		if n >= 2 {
			return "04"
		}
		return "4"
	case 's':
		if n >= 2 {
			return "05"
		}
		return "5"
	case 'a':
		return "PM"
	case 'z', 'Z':
		return "-0700"
	default:
		return strings.Repeat(string(c), n)
	}
}
