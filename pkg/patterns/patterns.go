package patterns

import (
	"fmt"
	"strings"
)

// DefaultPatterns are the substrings the reaper looks for when no patterns are
// configured. They mirror the naming convention used by the workshop material
// this tool cleans up after.
var DefaultPatterns = []string{"task", "Task"}

// Parse parses a comma-separated list of match patterns.
// Patterns are plain substrings, matched against resource names and tags.
func Parse(patternStr string) ([]string, error) {
	var parsed []string
	for _, p := range strings.Split(patternStr, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, ";:=") {
			return nil, fmt.Errorf("invalid match pattern %q: patterns are plain substrings", p)
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

// Match reports the first pattern that name or any tag key/value contains.
// Each pattern is checked both case-sensitively and case-folded, since the
// naming conventions being matched mix casings (e.g. "task" and "Task").
func Match(name string, tags map[string]string, patternList []string) (string, bool) {
	for _, pattern := range patternList {
		if contains(name, pattern) {
			return pattern, true
		}
		for k, v := range tags {
			if contains(k, pattern) || contains(v, pattern) {
				return pattern, true
			}
		}
	}
	return "", false
}

func contains(s, pattern string) bool {
	if strings.Contains(s, pattern) {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(pattern))
}
