// Package frontapp captures the foreground application's display name and
// bundle identifier once per result event, per spec §4.G step 1. It shells
// out to the same System Events automation surface internal/inject uses.
package frontapp

import (
	"os/exec"
	"strings"
)

// Info is the foreground application snapshot captured at dispatch time.
type Info struct {
	Name     string
	BundleID string
}

// Capture queries System Events for the frontmost application process. A
// failure (no accessibility permission, nothing frontmost) yields a zero
// Info rather than an error. Trigger evaluation matches the empty name and
// bundle id like any other value, so an app pattern that matches the empty
// string (or a negated-only app field) still matches.
func Capture() Info {
	script := `tell application "System Events"
		set frontApp to first application process whose frontmost is true
		set appName to name of frontApp
		set bundleID to ""
		try
			set bundleID to bundle identifier of frontApp
		end try
		return appName & "` + "\x1e" + `" & bundleID
	end tell`

	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return Info{}
	}
	return parse(string(out))
}

func parse(raw string) Info {
	raw = strings.TrimRight(raw, "\n")
	parts := strings.SplitN(raw, "\x1e", 2)
	info := Info{Name: parts[0]}
	if len(parts) > 1 {
		info.BundleID = parts[1]
	}
	return info
}
