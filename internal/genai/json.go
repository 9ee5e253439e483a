package genai

import (
	"fmt"
	"strings"
)

// ExtractJSON pulls the first well-formed JSON object or array out of model
// response text. Markdown fences are stripped first; failing that, the scan
// starts at the first '{' or '[' and balances brackets while honoring string
// literals and escapes. Models prefix prose or wrap output in fences often
// enough that loose parsing is required whenever no schema was declared.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Prefer a fenced block when present.
	if idx := strings.Index(text, "```"); idx != -1 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.Index(rest, "```"); end != -1 {
			if payload, err := balancedJSON(strings.TrimSpace(rest[:end])); err == nil {
				return payload, nil
			}
		}
	}

	return balancedJSON(text)
}

// balancedJSON scans from the first bracket to its matching close.
func balancedJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", fmt.Errorf("no JSON value found in response")
	}

	open := text[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unterminated JSON value in response")
}
