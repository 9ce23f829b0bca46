package normalize

import "medaudit/internal/domain"

// DemoMessage accompanies the demonstration finding set.
const DemoMessage = "Audit analysis completed successfully"

// demoFindings returns a fresh copy of the fixed demonstration set. It is only
// reachable when Options.DemoFallback is set.
func demoFindings() []domain.AuditFinding {
	return []domain.AuditFinding{
		{
			ID:             "1",
			Severity:       domain.SeverityPass,
			Category:       "Document Structure",
			Statement:      "Medical report follows standard formatting guidelines",
			Evidence:       "All required sections are present and properly structured.",
			Recommendation: "No action required. Document structure is compliant.",
		},
		{
			ID:             "2",
			Severity:       domain.SeverityWarning,
			Category:       "Patient Information",
			Statement:      "Patient identification could be more comprehensive",
			Evidence:       "Some optional patient identifiers are missing.",
			Recommendation: "Consider adding additional patient identifiers for better tracking.",
		},
		{
			ID:             "3",
			Severity:       domain.SeverityPass,
			Category:       "Clinical Data",
			Statement:      "All clinical measurements are within acceptable ranges",
			Evidence:       "Blood pressure, temperature, and other vital signs documented properly.",
			Recommendation: "Continue monitoring according to current protocols.",
		},
		{
			ID:             "4",
			Severity:       domain.SeverityFail,
			Category:       "Documentation",
			Statement:      "Missing physician signature or digital verification",
			Evidence:       "The report lacks proper authorization signature.",
			Recommendation: "Ensure all medical reports are properly signed and verified by attending physician.",
		},
		{
			ID:             "5",
			Severity:       domain.SeverityPass,
			Category:       "Compliance",
			Statement:      "Report meets HIPAA privacy requirements",
			Evidence:       "Patient privacy information is properly handled and protected.",
			Recommendation: "No action required. Privacy compliance is maintained.",
		},
	}
}
