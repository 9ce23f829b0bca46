package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"medaudit/internal/domain"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json info string", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no info string", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding prose", "Here you go:\n```json\n{\"a\":1}\n```\nThanks", `{"a":1}`},
		{"one line", "```json{\"a\":1}```", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}\n", `{"a":1}`},
		{"no fence", "  {\"a\":1}  ", `{"a":1}`},
		{"first block wins", "```\nfirst\n```\n```\nsecond\n```", "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HIPAA.1 Privacy", "HIPAA."},
		{"  GDPR.Art 9 ", "GDPR."},
		{"No period", DefaultCategory},
		{"", DefaultCategory},
		{".leading", DefaultCategory},
		{"A.B.C", "A."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveCategory(tt.in), "rule %q", tt.in)
	}
}

func FuzzDeriveCategory(f *testing.F) {
	for _, seed := range []string{"HIPAA.1 Privacy", "", "no period", "a.b.c", ".", " . "} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, rule string) {
		got := deriveCategory(rule)
		if got == DefaultCategory {
			return
		}
		if !strings.HasSuffix(got, ".") || strings.Count(got, ".") != 1 {
			t.Fatalf("deriveCategory(%q) = %q, want a single trailing period", rule, got)
		}
		if !strings.HasPrefix(strings.TrimSpace(rule), got) {
			t.Fatalf("deriveCategory(%q) = %q, not a prefix of the rule", rule, got)
		}
	})
}

func TestMapSeverity(t *testing.T) {
	tests := []struct {
		in   any
		want domain.Severity
	}{
		{"Compliant", domain.SeverityPass},
		{"PASS", domain.SeverityPass},
		{true, domain.SeverityPass},
		{"non-compliant", domain.SeverityFail},
		{"Non_Compliant", domain.SeverityFail},
		{"not  met", domain.SeverityFail},
		{false, domain.SeverityFail},
		{"warning", domain.SeverityWarning},
		{"partially compliant", domain.SeverityWarning},
		{"", domain.SeverityWarning},
		{nil, domain.SeverityWarning},
		{3.0, domain.SeverityWarning},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapSeverity(tt.in), "status %v", tt.in)
	}
}
