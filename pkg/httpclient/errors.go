package httpclient

import (
	"fmt"
	"time"

	"github.com/agentctl/agentctl/pkg/agentctlerr"
)

// RetryableError is returned once a request has exhausted its retry
// budget. It unwraps to both the underlying transport/status error and
// agentctlerr.ErrExternalStore, so a caller anywhere up the stack can
// classify the failure with a single errors.Is(err,
// agentctlerr.ErrExternalStore) regardless of which outbound call
// (model gateway, web search, graph store) produced it.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() []error {
	return []error{e.Err, agentctlerr.ErrExternalStore}
}

// IsRetryable reports whether a caller may retry this request again
// later; always true, since RetryableError is only ever constructed
// once the retry budget itself is already exhausted.
func (e *RetryableError) IsRetryable() bool {
	return true
}
