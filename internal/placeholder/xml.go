package placeholder

import (
	"fmt"
	"regexp"
	"sync"
)

var (
	xmlTagCacheMu sync.Mutex
	xmlTagCache   = map[string]*regexp.Regexp{}
)

func xmlTagRegexp(tag string) *regexp.Regexp {
	xmlTagCacheMu.Lock()
	defer xmlTagCacheMu.Unlock()
	if re, ok := xmlTagCache[tag]; ok {
		return re
	}
	re := regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(tag)))
	xmlTagCache[tag] = re
	return re
}

// extractXML returns the first <tag>…</tag> occurrence's inner text from s,
// and s with that occurrence removed, per spec §4.E. ok is false if tag does
// not occur in s.
func extractXML(s, tag string) (value string, rest string, ok bool) {
	re := xmlTagRegexp(tag)
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", s, false
	}
	value = s[loc[2]:loc[3]]
	rest = s[:loc[0]] + s[loc[1]:]
	return value, rest, true
}
