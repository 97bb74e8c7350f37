package engine

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type EngineErrorCause string

const (
	ErrCauseNoSeedURLs        EngineErrorCause = "no seed URLs configured"
	ErrCauseAlreadyRunning    EngineErrorCause = "engine already running"
	ErrCauseStopped           EngineErrorCause = "engine stopped"
	ErrCauseBackendUnselected EngineErrorCause = "no fetch backend selected for config"
)

// EngineError reports a failure in the crawl engine's own control plane,
// as opposed to a failure surfaced by a pipeline stage it drives.
type EngineError struct {
	Message   string
	Retryable bool
	Cause     EngineErrorCause
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error: %s: %s", e.Cause, e.Message)
}

func (e *EngineError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *EngineError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*EngineError)(nil)

// mapEngineErrorToMetadataCause maps engine-local error semantics to the
// canonical metadata.ErrorCause table. Observational only.
func mapEngineErrorToMetadataCause(err *EngineError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNoSeedURLs:
		return metadata.CauseConfigInvalid
	case ErrCauseAlreadyRunning, ErrCauseStopped:
		return metadata.CauseInvariantViolation
	case ErrCauseBackendUnselected:
		return metadata.CauseConfigInvalid
	default:
		return metadata.CauseUnknown
	}
}
