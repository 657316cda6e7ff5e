package llm

import "strings"

// StripCodeFences removes markdown code fence lines (``` or ```lang) and
// keeps whatever they enclosed.
func StripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	result := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}
