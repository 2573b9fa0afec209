package mqtt

import "strings"

// topicMatches reports whether topic matches the subscription filter,
// honouring the single-level (+) and multi-level (#) wildcards. Shared
// subscription prefixes ($share/<group>/) are stripped from the filter.
func topicMatches(filter, topic string) bool {
	if rest, ok := strings.CutPrefix(filter, "$share/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			filter = rest[i+1:]
		}
	}

	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	// Wildcards in the first level never match $-prefixed system topics.
	if strings.HasPrefix(topic, "$") && (fl[0] == "+" || fl[0] == "#") {
		return false
	}

	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
