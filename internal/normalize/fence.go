package normalize

import (
	"strings"
	"unicode"
)

const fenceMarker = "```"

// hasFence reports whether s contains a markdown code fence.
func hasFence(s string) bool {
	return strings.Contains(s, fenceMarker)
}

// stripFences returns the body of the first fenced block in s, dropping the
// opening marker with its info string ("```json") and the closing marker.
// An unterminated fence yields everything after the opening line. Input
// without a fence is returned trimmed.
func stripFences(s string) string {
	start := strings.Index(s, fenceMarker)
	if start < 0 {
		return strings.TrimSpace(s)
	}
	rest := s[start+len(fenceMarker):]

	// Drop the info string up to the end of the opening line. A fence written
	// on one line ("```json{...}```") only loses its leading language tag.
	nl := strings.IndexByte(rest, '\n')
	closing := strings.Index(rest, fenceMarker)
	if nl >= 0 && (closing < 0 || closing > nl) {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimLeftFunc(rest, unicode.IsLetter)
	}

	if end := strings.Index(rest, fenceMarker); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
