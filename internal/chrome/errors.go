package chrome

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type ChromeErrorCause string

const (
	ErrCauseDialFailure       ChromeErrorCause = "failed to dial devtools websocket"
	ErrCauseConnectionClosed  ChromeErrorCause = "connection closed"
	ErrCauseWriteFailure      ChromeErrorCause = "failed to write command frame"
	ErrCauseDecodeFailure     ChromeErrorCause = "failed to decode inbound frame"
	ErrCauseEncodeFailure     ChromeErrorCause = "failed to encode command params"
	ErrCauseProtocolError     ChromeErrorCause = "devtools protocol returned an error response"
	ErrCauseCallTimeout       ChromeErrorCause = "command timed out waiting for a response"
	ErrCauseNavigationFailure ChromeErrorCause = "navigation failed"
	ErrCauseWaitTimeout       ChromeErrorCause = "wait-for condition timed out"
)

// ChromeError is the typed error returned by every internal/chrome
// operation, following the same shape as RobotsError/FingerprintError:
// a closed Cause vocabulary plus an explicit Retryable bit.
type ChromeError struct {
	Message   string
	Retryable bool
	Cause     ChromeErrorCause
}

func (e *ChromeError) Error() string {
	return fmt.Sprintf("chrome error: %s: %s", e.Cause, e.Message)
}

func (e *ChromeError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *ChromeError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*ChromeError)(nil)

// MapErrorToMetadataCause maps chrome-local error semantics to the
// canonical metadata.ErrorCause table. Observational only.
func MapErrorToMetadataCause(err *ChromeError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDialFailure, ErrCauseConnectionClosed, ErrCauseWriteFailure:
		return metadata.CauseBrowserFailure
	case ErrCauseDecodeFailure, ErrCauseEncodeFailure, ErrCauseProtocolError:
		return metadata.CauseProtocolFailure
	case ErrCauseCallTimeout, ErrCauseWaitTimeout:
		return metadata.CauseBrowserFailure
	case ErrCauseNavigationFailure:
		return metadata.CauseBrowserFailure
	default:
		return metadata.CauseUnknown
	}
}
