package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON decodes a JSON object from possibly-noisy model output into v.
// It tries a direct parse of the fence-stripped text first, then falls back
// to scanning for the first balanced brace-delimited object. A *ParseError
// is returned when neither strategy yields valid JSON.
func ExtractJSON(text string, v any) error {
	stripped := stripCodeFences(text)

	direct := json.Unmarshal([]byte(stripped), v)
	if direct == nil {
		return nil
	}

	candidate, ok := braceDelimited(stripped)
	if !ok {
		return &ParseError{Text: text, Cause: direct}
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return &ParseError{Text: text, Cause: err}
	}
	return nil
}

// stripCodeFences removes a surrounding markdown code fence if present.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// braceDelimited returns the first balanced {...} span in text.
func braceDelimited(text string) (string, bool) {
	start := -1
	depth := 0
	for i, c := range text {
		switch c {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
