package metadata

import (
	"log/slog"
	"time"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

// CrawlFinalizer records the terminal, once-per-crawl summary. It is kept
// distinct from MetadataSink because it fires exactly once, after the
// scheduler or engine has already decided the crawl is over, rather than
// continuously during the run.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration)
}

// MetadataSink is the observability port every pipeline package records
// through. Implementations MUST treat every call as fire-and-forget:
// recording metadata must never block or fail the caller.
type MetadataSink interface {
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)
	RecordAssetFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		retryCount int,
	)
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// Recorder is the default MetadataSink, fanning every call out to a
// structured slog.Logger. It keeps no state of its own; terminal crawl
// summaries are computed by the caller (see crawlStats) and logged once
// through RecordFinalCrawlStats.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder builds a Recorder writing to the given logger. A nil logger
// falls back to slog.Default().
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	r.logger.Debug("fetch",
		"url", fetchUrl,
		"status", httpStatus,
		"duration", duration,
		"content_type", contentType,
		"retries", retryCount,
		"depth", crawlDepth,
	)
}

func (r *Recorder) RecordAssetFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	r.logger.Debug("asset_fetch",
		"url", fetchUrl,
		"status", httpStatus,
		"duration", duration,
		"retries", retryCount,
	)
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	args := make([]any, 0, 8+len(attrs)*2)
	args = append(args,
		"observed_at", observedAt,
		"package", packageName,
		"action", action,
		"cause", cause.String(),
		"details", details,
	)
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Error("crawl_error", args...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := make([]any, 0, 4+len(attrs)*2)
	args = append(args, "kind", string(kind), "path", path)
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Info("artifact", args...)
}

// RecordFinalCrawlStats logs a terminal, once-per-crawl summary. It is
// never consulted by the scheduler or engine for control flow.
func (r *Recorder) RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration) {
	stats := crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalAssets: totalAssets,
		durationMs:  duration.Milliseconds(),
	}
	r.logger.Info("crawl_summary",
		"pages", stats.totalPages,
		"errors", stats.totalErrors,
		"assets", stats.totalAssets,
		"duration_ms", stats.durationMs,
	)
}

var _ CrawlFinalizer = (*Recorder)(nil)

// NoopSink discards every record. Useful for tests and dry runs where
// observability is not under test.
type NoopSink struct{}

func (NoopSink) RecordFetch(string, int, time.Duration, string, int, int)              {}
func (NoopSink) RecordAssetFetch(string, int, time.Duration, int)                      {}
func (NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {}
func (NoopSink) RecordArtifact(ArtifactKind, string, []Attribute)                      {}
