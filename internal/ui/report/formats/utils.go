package formats

import (
	"fmt"
	"net/url"
	"strings"

	"tokentrace/internal/engine/coverage"
)

// pctLabel renders a percentage for human-facing output, with the
// not-applicable sentinel spelled out.
func pctLabel(v float64) string {
	if v == coverage.NotApplicable {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}

// tsvPct renders a percentage for TSV output; the sentinel stays -1.
func tsvPct(v float64) string {
	if v == coverage.NotApplicable {
		return "-1"
	}
	return fmt.Sprintf("%.2f", v)
}

// decodeDirKey reverses the URL escaping on directory keys for display.
func decodeDirKey(key string) string {
	decoded, err := url.PathUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

func normalizeReportVerbosity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minimal":
		return "minimal"
	case "detailed":
		return "detailed"
	default:
		return "standard"
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
