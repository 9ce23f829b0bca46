package normalize

import (
	"strings"

	"medaudit/internal/domain"
)

var passStatuses = map[string]struct{}{
	"compliant": {}, "pass": {}, "passed": {}, "success": {}, "ok": {},
	"yes": {}, "true": {}, "met": {}, "valid": {}, "satisfied": {},
}

var failStatuses = map[string]struct{}{
	"non compliant": {}, "noncompliant": {}, "not compliant": {}, "fail": {},
	"failed": {}, "failure": {}, "error": {}, "violation": {}, "no": {},
	"false": {}, "not met": {}, "invalid": {}, "critical": {},
}

var statusSpacer = strings.NewReplacer("_", " ", "-", " ")

// mapSeverity classifies an upstream status value. Anything that is neither a
// recognized compliant nor non-compliant marker becomes a warning.
func mapSeverity(status any) domain.Severity {
	var s string
	switch v := status.(type) {
	case bool:
		if v {
			return domain.SeverityPass
		}
		return domain.SeverityFail
	case string:
		s = v
	default:
		return domain.SeverityWarning
	}

	s = strings.Join(strings.Fields(statusSpacer.Replace(strings.ToLower(s))), " ")
	if _, ok := passStatuses[s]; ok {
		return domain.SeverityPass
	}
	if _, ok := failStatuses[s]; ok {
		return domain.SeverityFail
	}
	return domain.SeverityWarning
}
