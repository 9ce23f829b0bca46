// Package normalize maps the audit endpoint's loosely typed replies onto
// canonical audit outcomes.
package normalize

import (
	"bytes"
	"encoding/json"
	"log"
	"maps"
	"slices"
	"strconv"
	"strings"

	"medaudit/internal/domain"
	"medaudit/internal/port"
)

const (
	// DefaultMessage is the success message used when the reply carries none.
	DefaultMessage = "Analysis completed successfully"
	// NoOutputMessage is used when the endpoint returned an empty body.
	NoOutputMessage = "No output received"

	// maxUnwrapDepth bounds how far wrapper objects and arrays are followed.
	maxUnwrapDepth = 4
)

// Keys recognized in reply objects, in lookup order.
var (
	resultsKeys        = []string{"results", "audit_results", "findings"}
	textKeys           = []string{"output", "text", "result", "response", "content"}
	statusKeys         = []string{"status", "severity", "type", "result", "compliance", "compliant"}
	statementKeys      = []string{"rule", "message", "statement", "title", "finding"}
	evidenceKeys       = []string{"evidence", "details", "detail", "reason", "explanation"}
	recommendationKeys = []string{"recommendation", "remediation", "suggestion", "action"}
)

// ruleKeys mark an object as a finding. "message" alone does not: webhook
// acknowledgements carry only a message.
var ruleKeys = []string{"rule", "statement", "title", "finding"}

// Options are fixed at construction time.
type Options struct {
	// DemoFallback substitutes the demonstration finding set when the reply
	// holds no structured results. Production configurations leave it off.
	DemoFallback bool
	// RawPassthrough surfaces unstructured reply text as the outcome message.
	RawPassthrough bool
}

// Normalizer implements port.ReplyNormalizer.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer with the given options.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// shapeKind tags the structural variant detected in a reply.
type shapeKind int

const (
	shapeEmpty shapeKind = iota
	shapeArray
	shapeEmbedded
	shapeText
)

// shape is the result of structural detection. Only the fields relevant to
// kind are set. hasResults records that the reply named a results key, even
// when its value was unusable.
type shape struct {
	kind       shapeKind
	items      []any
	text       string
	message    string
	hasResults bool
}

// Normalize never fails: malformed replies and internal errors degrade to an
// outcome without structured findings.
func (n *Normalizer) Normalize(reply *domain.RawEndpointReply) (out domain.AuditOutcome) {
	var body []byte
	if reply != nil {
		body = reply.Body
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("normalize.Normalizer: recovered while normalizing reply: %v", r)
			out = n.unstructured(string(bytes.TrimSpace(body)), "", false)
		}
	}()

	s := detect(body)
	switch s.kind {
	case shapeEmpty:
		return emptyOutcome()
	case shapeArray:
		return structuredOutcome(s.items, s.message)
	case shapeEmbedded:
		return n.embeddedOutcome(s.text, s.message, s.hasResults)
	default:
		return n.unstructured(s.text, s.message, s.hasResults)
	}
}

// detect classifies the raw body. Precedence: empty, structured array,
// embedded (fenced) JSON text, plain text.
func detect(body []byte) shape {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return shape{kind: shapeEmpty}
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return textShape(string(trimmed), "")
	}
	if v == nil {
		return shape{kind: shapeEmpty}
	}
	return detectValue(v, string(trimmed), 0)
}

func detectValue(v any, raw string, depth int) shape {
	switch t := v.(type) {
	case []any:
		if isFindingArray(t) {
			return shape{kind: shapeArray, items: t}
		}
		if depth < maxUnwrapDepth {
			for _, el := range t {
				if m, ok := el.(map[string]any); ok && hasAnyKey(m, resultsKeys, textKeys) {
					return detectValue(m, raw, depth+1)
				}
			}
		}
		return shape{kind: shapeText, text: raw}
	case map[string]any:
		message, _ := t["message"].(string)
		hasResults := hasAnyKey(t, resultsKeys)
		for _, k := range resultsKeys {
			if arr, ok := t[k].([]any); ok {
				return shape{kind: shapeArray, items: arr, message: message, hasResults: true}
			}
		}
		for _, k := range append(append([]string{}, resultsKeys...), textKeys...) {
			switch inner := t[k].(type) {
			case string:
				s := textShape(inner, message)
				s.hasResults = hasResults
				return s
			case map[string]any, []any:
				if depth < maxUnwrapDepth {
					s := detectValue(inner, raw, depth+1)
					if s.message == "" {
						s.message = message
					}
					s.hasResults = s.hasResults || hasResults
					return s
				}
			}
		}
		return shape{kind: shapeText, text: raw, message: message, hasResults: hasResults}
	case string:
		return textShape(t, "")
	default:
		return shape{kind: shapeText, text: raw}
	}
}

// textShape decides whether a piece of text carries embedded JSON.
func textShape(text, message string) shape {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return shape{kind: shapeEmpty, message: message}
	}
	if hasFence(trimmed) || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return shape{kind: shapeEmbedded, text: trimmed, message: message}
	}
	return shape{kind: shapeText, text: trimmed, message: message}
}

// isFindingArray reports whether at least one element is an object carrying a
// status-like or rule-like key. An empty array qualifies. Other elements are
// left to mapFindings.
func isFindingArray(arr []any) bool {
	if len(arr) == 0 {
		return true
	}
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok && hasAnyKey(m, statusKeys, ruleKeys) {
			return true
		}
	}
	return false
}

func hasAnyKey(m map[string]any, keySets ...[]string) bool {
	for _, keys := range keySets {
		for _, k := range keys {
			if _, ok := m[k]; ok {
				return true
			}
		}
	}
	return false
}

func emptyOutcome() domain.AuditOutcome {
	return domain.AuditOutcome{
		Success:  true,
		Findings: []domain.AuditFinding{},
		Message:  NoOutputMessage,
	}
}

func structuredOutcome(items []any, message string) domain.AuditOutcome {
	if message == "" {
		message = DefaultMessage
	}
	return domain.AuditOutcome{
		Success:  true,
		Findings: mapFindings(items),
		Message:  message,
	}
}

// embeddedOutcome strips code fences and parses the embedded document. Parse
// failures are logged and degrade to an outcome without findings.
func (n *Normalizer) embeddedOutcome(text, message string, hasResults bool) domain.AuditOutcome {
	stripped := stripFences(text)
	if stripped == "" {
		log.Printf("normalize.Normalizer: embedded reply is empty after stripping fences")
		return n.degraded(text, message, hasResults)
	}

	var v any
	if err := json.Unmarshal([]byte(stripped), &v); err != nil {
		log.Printf("normalize.Normalizer: embedded JSON parse failed: %v (raw: %s)", err, truncate(stripped, 200))
		return n.degraded(text, message, hasResults)
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		if message == "" {
			message, _ = t["message"].(string)
		}
		for _, k := range resultsKeys {
			if arr, ok := t[k].([]any); ok {
				items = arr
				break
			}
		}
		if items == nil {
			log.Printf("normalize.Normalizer: embedded JSON has no findings list (keys: %s)", strings.Join(slices.Sorted(maps.Keys(t)), ","))
			return n.degraded(text, message, hasResults || hasAnyKey(t, resultsKeys))
		}
	default:
		log.Printf("normalize.Normalizer: embedded JSON is not an object or array")
		return n.degraded(text, message, hasResults)
	}
	return structuredOutcome(items, message)
}

// unstructured handles plain text and unrecognized payloads.
func (n *Normalizer) unstructured(text, message string, hasResults bool) domain.AuditOutcome {
	if strings.TrimSpace(text) == "" {
		return emptyOutcome()
	}
	return n.degraded(text, message, hasResults)
}

// degraded builds the outcome for replies without structured findings. The
// reply's own message is kept when present. Demo findings replace it only when
// the reply named no results key at all.
func (n *Normalizer) degraded(text, message string, hasResults bool) domain.AuditOutcome {
	if message == "" {
		message = DefaultMessage
	}
	out := domain.AuditOutcome{
		Success:  true,
		Findings: []domain.AuditFinding{},
		Message:  message,
		Degraded: true,
	}
	if n.opts.RawPassthrough {
		out.Message = text
		out.RawText = text
	}
	if n.opts.DemoFallback && !hasResults {
		out.Findings = demoFindings()
		out.Message = DemoMessage
		out.Demo = true
	}
	return out
}

// mapFindings converts array elements into findings with ordinal IDs in source
// order. Strings become bare statements; other scalars are skipped.
func mapFindings(items []any) []domain.AuditFinding {
	findings := make([]domain.AuditFinding, 0, len(items))
	for _, item := range items {
		var f domain.AuditFinding
		switch t := item.(type) {
		case map[string]any:
			f = toFinding(t)
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
			f = domain.AuditFinding{
				Severity:  domain.SeverityWarning,
				Category:  deriveCategory(t),
				Statement: strings.TrimSpace(t),
			}
		default:
			continue
		}
		f.ID = strconv.Itoa(len(findings) + 1)
		findings = append(findings, f)
	}
	return findings
}

func toFinding(m map[string]any) domain.AuditFinding {
	statement := firstString(m, statementKeys)
	category := firstString(m, []string{"category"})
	if category == "" {
		category = deriveCategory(statement)
	}

	var status any
	for _, k := range statusKeys {
		if v, ok := m[k]; ok && v != nil {
			status = v
			break
		}
	}

	return domain.AuditFinding{
		Severity:       mapSeverity(status),
		Category:       category,
		Statement:      statement,
		Evidence:       firstString(m, evidenceKeys),
		Recommendation: firstString(m, recommendationKeys),
	}
}

// firstString returns the first non-empty value under keys, stringified.
func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s := stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			if s := stringify(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Compile-time check.
var _ port.ReplyNormalizer = (*Normalizer)(nil)
