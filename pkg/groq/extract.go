package groq

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
)

// ExtractJSON pulls the first JSON object out of an LLM reply that may be
// wrapped in markdown fences or prose. It returns "" when none parses.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "```"))

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	obj := matchBraces(s[start:])
	if isObject(obj) {
		return obj
	}
	if fixed := sanitize(obj); isObject(fixed) {
		return fixed
	}
	return ""
}

func isObject(s string) bool {
	var probe map[string]any
	return json.Unmarshal([]byte(s), &probe) == nil && len(probe) > 0
}

// matchBraces returns the prefix of s up to the brace closing its first '{'.
func matchBraces(s string) string {
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

// sanitize fixes trailing commas and bare keys, the usual LLM slips.
func sanitize(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
}
