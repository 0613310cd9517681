package helpers

import (
	"errors"
	"strings"
)

// ExtractJSON returns the JSON payload of a model response. Models in JSON
// mode occasionally wrap the object in a fenced code block or prepend prose;
// this strips a ```/```json fence when present and otherwise cuts from the
// first opening brace or bracket to the matching end of the string.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty input")
	}

	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(s, fence) {
			inner := s[len(fence):]
			if end := strings.Index(inner, "```"); end != -1 {
				return strings.TrimSpace(inner[:end]), nil
			}
			return strings.TrimSpace(inner), nil
		}
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", errors.New("no json payload found")
	}
	var closer byte = '}'
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return "", errors.New("unterminated json payload")
	}
	return s[start : end+1], nil
}
