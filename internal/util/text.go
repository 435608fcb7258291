package util

import "strings"

// SanitizePostgresText drops invalid UTF-8 and NUL bytes, neither of which
// postgres accepts in text or jsonb values.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SanitizePostgresProperties applies SanitizePostgresText to every string
// value of a property bag. Keys are cleaned the same way.
func SanitizePostgresProperties(properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties))
	for k, v := range properties {
		if s, ok := v.(string); ok {
			v = SanitizePostgresText(s)
		}
		out[SanitizePostgresText(k)] = v
	}
	return out
}
