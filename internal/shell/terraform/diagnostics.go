package terraform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// JSON Diagnostics
// =============================================================================

// jsonLine is one line of terraform's machine-readable (-json) output.
type jsonLine struct {
	Level      string `json:"@level"`
	Message    string `json:"@message"`
	Diagnostic *struct {
		Severity string `json:"severity"`
		Summary  string `json:"summary"`
		Detail   string `json:"detail"`
	} `json:"diagnostic"`
}

// extractDiagnostic scans terraform's streamed JSON output for the first
// error diagnostic and renders it. When no structured diagnostic is found,
// the tail of the raw output is returned so the failure is never silent.
func extractDiagnostic(output string) string {
	for _, line := range strings.Split(output, "\n") {
		var parsed jsonLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue // not every line is JSON
		}
		if parsed.Level != "error" {
			continue
		}
		if parsed.Diagnostic != nil {
			if parsed.Diagnostic.Detail != "" {
				return fmt.Sprintf("%s: %s", parsed.Diagnostic.Summary, parsed.Diagnostic.Detail)
			}
			return parsed.Diagnostic.Summary
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return rawTail(output, 20)
}

// rawTail returns the last n non-empty lines of output.
func rawTail(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	if len(kept) == 0 {
		return "no output from provisioning engine"
	}
	return strings.Join(kept, "\n")
}
