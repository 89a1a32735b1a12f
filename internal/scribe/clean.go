package scribe

import "strings"

// cleanResponse strips the wrappers models add despite being told not to:
// Markdown code fences and prose around the payload. As a last resort it
// keeps only the outermost JSON array, or the outermost object when no array
// is present.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
