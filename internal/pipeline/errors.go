package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrEmptyResponse indicates the model returned no text content at all.
	ErrEmptyResponse = eris.New("pipeline: empty model response")

	// ErrResponseFormat indicates the response text contained no JSON object.
	ErrResponseFormat = eris.New("pipeline: no JSON object in model response")
)

// ParseError wraps a malformed model response. The raw response text is
// written to a temp file so the failing output can be inspected.
type ParseError struct {
	Phase   string
	RawPath string
	Err     error
}

func (e *ParseError) Error() string {
	if e.RawPath != "" {
		return fmt.Sprintf("pipeline: %s response unparseable (raw saved to %s): %v", e.Phase, e.RawPath, e.Err)
	}
	return fmt.Sprintf("pipeline: %s response unparseable: %v", e.Phase, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// newParseError saves the raw response text and builds a ParseError. Saving
// is best-effort; a failed save still yields a usable error.
func newParseError(phase, raw string, err error) *ParseError {
	path := saveRawResponse(phase, raw)
	return &ParseError{Phase: phase, RawPath: path, Err: err}
}

func saveRawResponse(phase, raw string) string {
	name := fmt.Sprintf("bioblueprint-%s-%d.txt", phase, time.Now().UnixMilli())
	path := filepath.Join(os.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		zap.L().Warn("failed to save raw response",
			zap.String("phase", phase),
			zap.Error(err),
		)
		return ""
	}
	return path
}
