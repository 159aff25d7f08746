package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractJSONObject returns the first complete top-level JSON object embedded
// in text. Models wrap their JSON in prose or markdown fences often enough
// that naive unmarshaling of the whole response fails; this scans for the
// first balanced {...} span, honoring string literals and escapes.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeResponse extracts and unmarshals the JSON object from a model
// response into out, classifying the failure modes for the caller.
func decodeResponse(phase, text string, out any) error {
	if strings.TrimSpace(text) == "" {
		return eris.Wrap(ErrEmptyResponse, phase)
	}
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return newParseError(phase, text, ErrResponseFormat)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return newParseError(phase, text, err)
	}
	return nil
}
