package normalize

import "strings"

// DefaultCategory is used when a finding carries no category and none can be
// derived from its rule text.
const DefaultCategory = "General"

// deriveCategory takes the leading segment of the rule text up to and including
// the first period ("HIPAA.1 Privacy" -> "HIPAA."). Rules without a usable
// prefix fall back to DefaultCategory.
func deriveCategory(rule string) string {
	rule = strings.TrimSpace(rule)
	i := strings.IndexByte(rule, '.')
	if i < 0 {
		return DefaultCategory
	}
	segment := strings.TrimSpace(rule[:i+1])
	if segment == "." {
		return DefaultCategory
	}
	return segment
}
