// Package filename turns media titles into names that are safe on every
// desktop filesystem.
package filename

import "strings"

// Fallback is returned when nothing usable is left of the input.
const Fallback = "download"

const reserved = `\/:*?"<>|`

// Sanitize replaces reserved characters with underscores, then trims
// surrounding whitespace and trailing dots. A name without reserved
// characters comes back trimmed and otherwise unchanged. The result is never
// empty.
func Sanitize(name string) string {
	b := []byte(name)
	for i, c := range b {
		if strings.IndexByte(reserved, c) >= 0 {
			b[i] = '_'
		}
	}
	out := trim(string(b))
	if out == "" {
		return Fallback
	}
	return out
}

func trim(s string) string {
	for {
		next := strings.TrimRight(strings.TrimSpace(s), ".")
		if next == s {
			return s
		}
		s = next
	}
}
