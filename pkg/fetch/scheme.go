package fetch

import "strings"

// urlSchemePrefixes are the schemes an LFN may carry when it is itself a
// directly-fetchable origin URL rather than an opaque workflow name.
var urlSchemePrefixes = []string{"http:", "https:", "file:", "ftp:"}

// LooksLikeURL reports whether s begins with one of the schemes fetch
// understands, the test used to decide whether an LFN can serve as its own
// last-resort PFN.
func LooksLikeURL(s string) bool {
	for _, p := range urlSchemePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}
