package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is returned by speech synthesis and embedding calls that
// receive nothing to work on.
var ErrEmptyInput = errors.New("empty input")

// IsUpstream reports whether err came from the model provider rather than
// from studycast itself. Callers surface these as gateway failures.
func IsUpstream(err error) bool {
	var rateLimit *ErrRateLimit
	var unavailable *ErrProviderUnavailable
	var invalid *ErrInvalidResponse
	var truncated *ErrMaxTokensExceeded
	return errors.As(err, &rateLimit) ||
		errors.As(err, &unavailable) ||
		errors.As(err, &invalid) ||
		errors.As(err, &truncated)
}

// ErrRateLimit is a 429 from the provider. RetryAfter is zero when the
// provider sent no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse carries model output that failed schema validation,
// so it can be logged and fed back on retry.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers network failures, 5xx responses and an
// exhausted mock queue.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is returned when structured output was cut off by
// the token budget and cannot be parsed.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("structured output cut off after %d bytes by the token limit", len(e.Content))
}
