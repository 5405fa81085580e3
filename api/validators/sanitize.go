package validators

import "strings"

// SanitizeString trims surrounding whitespace and truncates to maxLen
// bytes. A maxLen of zero or less disables truncation.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
