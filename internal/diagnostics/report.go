package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// FormatReport renders diag as a human-readable text report.
func FormatReport(diag domain.NetworkDiagnostics) string {
	var b strings.Builder
	b.WriteString("=== Network Diagnostics Report ===\n\n")

	status := "❌ ISSUES DETECTED"
	if diag.Overall {
		status = "✅ HEALTHY"
	}
	fmt.Fprintf(&b, "Overall Status: %s\n\n", status)

	b.WriteString("Test Results:\n")
	for _, r := range diag.Results {
		icon := "❌"
		if r.Success {
			icon = "✅"
		}
		duration := ""
		if r.Duration > 0 {
			duration = fmt.Sprintf(" (%dms)", r.Duration)
		}
		fmt.Fprintf(&b, "%s %s: %s%s\n", icon, r.Name, r.Message, duration)

		if len(r.Details) > 0 {
			details, err := json.Marshal(r.Details)
			if err == nil {
				fmt.Fprintf(&b, "   Details: %s\n", details)
			}
		}
	}

	if len(diag.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range diag.Recommendations {
			fmt.Fprintf(&b, "• %s\n", rec)
		}
	}

	return b.String()
}
