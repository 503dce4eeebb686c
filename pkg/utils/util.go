package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSONResponse attempts to parse a string response as JSON.
func ParseJSONResponse(response string) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := json.Unmarshal([]byte(response), &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return result, nil
}

// ExtractJSON pulls the first JSON object or array out of an LLM response
// that may wrap it in markdown fences or surrounding prose. Returns the raw
// JSON text, or an error when no parseable JSON is present.
func ExtractJSON(response string) (string, error) {
	text := strings.TrimSpace(response)

	// Strip a markdown code fence if the whole response is fenced.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	if json.Valid([]byte(text)) {
		return text, nil
	}

	// Fall back to the first balanced object or array in the text.
	for _, open := range []byte{'{', '['} {
		if candidate, ok := balancedSlice(text, open); ok {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// UnmarshalTolerant extracts JSON from a possibly noisy response and decodes
// it into v.
func UnmarshalTolerant(response string, v interface{}) error {
	raw, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// balancedSlice finds the first balanced JSON value starting with open,
// respecting string literals and escapes.
func balancedSlice(text string, open byte) (string, bool) {
	var closeByte byte
	switch open {
	case '{':
		closeByte = '}'
	case '[':
		closeByte = ']'
	default:
		return "", false
	}

	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Skip structural characters inside strings.
		case c == open:
			depth++
		case c == closeByte:
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}

	return "", false
}
