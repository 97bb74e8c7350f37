package engine_test

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/engine"
	"github.com/rohmanhakim/docs-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/normalize"
	"github.com/rohmanhakim/docs-crawler/internal/page"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/storage"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowAllRobot lets every URL through with no crawl delay, isolating the
// engine's own concurrency behavior from robots.txt policy.
type allowAllRobot struct{}

func (allowAllRobot) Init(string) {}

func (allowAllRobot) Decide(target url.URL) (robots.Decision, *robots.RobotsError) {
	return robots.Decision{Url: target, Allowed: true}, nil
}

// trackingFetcher records how many calls are in flight at once so tests
// can assert the worker pool never exceeds its semaphore bound, and that
// it overlaps fetches rather than running them one at a time.
type trackingFetcher struct {
	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *trackingFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam fetcher.FetchParam,
	retryParam retry.RetryParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		prevMax := f.maxInFlight.Load()
		if cur <= prevMax {
			break
		}
		if f.maxInFlight.CompareAndSwap(prevMax, cur) {
			break
		}
	}

	time.Sleep(f.delay)

	u, _ := url.Parse("https://example.com/fetched")
	result := fetcher.NewFetchResultForTest(
		*u, []byte("<html><body>no links here</body></html>"), 200, "text/html", map[string]string{}, time.Now(),
	)
	return result, nil
}

// countingTransformer stands in for a transform.Transformer so engine
// tests never pull extractor/sanitizer/mdconvert/assets/normalize in.
type countingTransformer struct {
	calls atomic.Int32
}

func (t *countingTransformer) Transform(ctx context.Context, p *page.Page) (normalize.NormalizedMarkdownDoc, failure.ClassifiedError) {
	t.calls.Add(1)
	return normalize.NormalizedMarkdownDoc{}, nil
}

// countingSink stands in for storage.Sink.
type countingSink struct {
	mu     sync.Mutex
	writes int
}

func (s *countingSink) Write(outputDir string, doc normalize.NormalizedMarkdownDoc, algo hashutil.HashAlgo) (storage.WriteResult, failure.ClassifiedError) {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return storage.WriteResult{}, nil
}

type instantSleeper struct{}

func (instantSleeper) Sleep(time.Duration) {}

func seedURLs(t *testing.T, n int) []url.URL {
	t.Helper()
	urls := make([]url.URL, n)
	for i := 0; i < n; i++ {
		u, err := url.Parse("https://example.com/seed" + string(rune('a'+i)))
		require.NoError(t, err)
		urls[i] = *u
	}
	return urls
}

func buildTestEngine(t *testing.T, seeds int, concurrency int, fetchDelay time.Duration) (*engine.Engine, *trackingFetcher, *countingTransformer, *countingSink) {
	t.Helper()

	cfg, err := config.WithDefault(seedURLs(t, seeds)).WithConcurrency(concurrency).Build()
	require.NoError(t, err)

	fakeFetcher := &trackingFetcher{delay: fetchDelay}
	transformer := &countingTransformer{}
	sink := &countingSink{}

	e, err := engine.New(
		cfg,
		&metadata.NoopSink{},
		nil,
		allowAllRobot{},
		frontier.NewCrawlFrontier(),
		fakeFetcher,
		transformer,
		sink,
		nil,
		instantSleeper{},
	)
	require.NoError(t, err)
	return e, fakeFetcher, transformer, sink
}

// TestEngine_DispatchesFetchesConcurrently proves the crawl loop is a
// worker pool, not the sequential scheduler loop it replaces: with a
// fetch delay and several seeds, wall-clock time must be far below what
// running every fetch back-to-back would take.
func TestEngine_DispatchesFetchesConcurrently(t *testing.T) {
	const seeds = 6
	const delay = 40 * time.Millisecond

	e, fakeFetcher, _, _ := buildTestEngine(t, seeds, 6, delay)

	start := time.Now()
	result, crawlErr := e.Crawl(context.Background())
	elapsed := time.Since(start)

	require.Nil(t, crawlErr)
	assert.Equal(t, seeds, int(fakeFetcher.calls.Load()))
	assert.Greater(t, fakeFetcher.maxInFlight.Load(), int32(1),
		"expected multiple fetches in flight at once, got max overlap of 1 (sequential)")
	assert.Less(t, elapsed, time.Duration(seeds)*delay,
		"concurrent dispatch should finish faster than seeds*delay sequential execution")
	assert.Equal(t, seeds, result.TotalPages)
}

// TestEngine_SemaphoreBoundsWorkerConcurrency proves the worker pool is
// bounded by config.Concurrency() rather than unbounded goroutine fan-out.
func TestEngine_SemaphoreBoundsWorkerConcurrency(t *testing.T) {
	const seeds = 8
	const concurrency = 3

	e, fakeFetcher, _, _ := buildTestEngine(t, seeds, concurrency, 20*time.Millisecond)

	_, crawlErr := e.Crawl(context.Background())
	require.Nil(t, crawlErr)

	assert.LessOrEqual(t, fakeFetcher.maxInFlight.Load(), int32(concurrency))
	assert.Equal(t, seeds, int(fakeFetcher.calls.Load()))
}

// TestEngine_BroadcastsEveryCompletedPage proves a subscriber registered
// before Crawl receives one Page per successfully transformed fetch, and
// that Crawl does not return until every subscriber has had the chance to
// drain (the Draining -> Stopped transition waits on the broadcaster
// guard).
func TestEngine_BroadcastsEveryCompletedPage(t *testing.T) {
	const seeds = 4

	e, _, transformer, sink := buildTestEngine(t, seeds, 4, 0)

	ch, release := e.Subscribe(seeds)
	defer release()

	received := make([]*page.Page, 0, seeds)
	done := make(chan struct{})
	go func() {
		for p := range ch {
			received = append(received, p)
		}
		close(done)
	}()

	result, crawlErr := e.Crawl(context.Background())
	require.Nil(t, crawlErr)

	release()
	<-done

	assert.Len(t, received, seeds)
	for _, p := range received {
		assert.True(t, p.IsFrozen())
	}
	assert.Equal(t, seeds, int(transformer.calls.Load()))
	assert.Equal(t, seeds, sink.writes)
	assert.Equal(t, seeds, result.TotalPages)
}

// TestEngine_TerminatesWhenFrontierDrainsAndWorkersIdle proves the
// dispatcher's termination check (frontier empty AND no active worker) is
// reached in bounded time rather than hanging, which a naive "stop on
// first empty Dequeue" loop would get wrong under concurrent submission.
func TestEngine_TerminatesWhenFrontierDrainsAndWorkersIdle(t *testing.T) {
	e, _, _, _ := buildTestEngine(t, 10, 4, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_, _ = e.Crawl(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Crawl never terminated after the frontier drained")
	}

	assert.Equal(t, engine.StateStopped, e.State())
}

// TestEngine_CrawlRejectsSecondRun proves an Engine instance is
// single-use: a second Crawl call made after the first has finished is
// rejected rather than starting another crawl.
func TestEngine_CrawlRejectsSecondRun(t *testing.T) {
	e, _, _, _ := buildTestEngine(t, 2, 2, 0)

	_, firstErr := e.Crawl(context.Background())
	require.Nil(t, firstErr)

	_, secondErr := e.Crawl(context.Background())
	require.NotNil(t, secondErr)
	assert.False(t, secondErr.IsRetryable())
}
