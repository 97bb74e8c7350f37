package fingerprint

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type FingerprintErrorCause string

const (
	ErrCauseTemplateExecution      FingerprintErrorCause = "template execution failed"
	ErrCauseUnknownOperatingSystem FingerprintErrorCause = "unknown operating system"
)

type FingerprintError struct {
	Message   string
	Retryable bool
	Cause     FingerprintErrorCause
}

func (e *FingerprintError) Error() string {
	return fmt.Sprintf("fingerprint error: %s: %s", e.Cause, e.Message)
}

func (e *FingerprintError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FingerprintError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*FingerprintError)(nil)

// MapErrorToMetadataCause maps fingerprint-local error semantics to the
// canonical metadata.ErrorCause table. Exported because Compose has no
// MetadataSink of its own, so recording a failure falls to its caller;
// no package in this repository calls it. Observational only.
func MapErrorToMetadataCause(err *FingerprintError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTemplateExecution:
		return metadata.CauseInvariantViolation
	case ErrCauseUnknownOperatingSystem:
		return metadata.CauseConfigInvalid
	default:
		return metadata.CauseUnknown
	}
}
