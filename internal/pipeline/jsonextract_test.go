package pipeline

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectPlain(t *testing.T) {
	raw, ok := ExtractJSONObject(`{"a": 1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, raw)
}

func TestExtractJSONObjectWithProse(t *testing.T) {
	text := "Here is the result:\n```json\n{\"a\": {\"b\": 2}}\n```\nLet me know."
	raw, ok := ExtractJSONObject(text)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 2}}`, raw)
}

func TestExtractJSONObjectBracesInStrings(t *testing.T) {
	text := `{"note": "uses { and } inside", "esc": "quote \" brace }"}`
	raw, ok := ExtractJSONObject(text)
	require.True(t, ok)
	assert.Equal(t, text, raw)
}

func TestExtractJSONObjectNone(t *testing.T) {
	_, ok := ExtractJSONObject("no json here at all")
	assert.False(t, ok)
}

func TestExtractJSONObjectUnterminated(t *testing.T) {
	_, ok := ExtractJSONObject(`{"a": {"b": 1}`)
	assert.False(t, ok)
}

func TestDecodeResponseEmpty(t *testing.T) {
	var out map[string]any
	err := decodeResponse("scan", "   \n", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestDecodeResponseNoJSON(t *testing.T) {
	var out map[string]any
	err := decodeResponse("scan", "I could not produce output.", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResponseFormat))

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "scan", parseErr.Phase)
}

func TestDecodeResponseMalformedSavesRaw(t *testing.T) {
	var out map[string]any
	err := decodeResponse("analyze", `{"a": unquoted}`, &out)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "analyze", parseErr.Phase)
	require.NotEmpty(t, parseErr.RawPath)
	defer os.Remove(parseErr.RawPath)

	saved, readErr := os.ReadFile(parseErr.RawPath)
	require.NoError(t, readErr)
	assert.Equal(t, `{"a": unquoted}`, string(saved))
}

func TestDecodeResponseSuccess(t *testing.T) {
	var out map[string]any
	err := decodeResponse("context", "prefix {\"key\": \"value\"} suffix", &out)
	require.NoError(t, err)
	assert.Equal(t, "value", out["key"])
}
