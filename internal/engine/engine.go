// Package engine is the concurrent crawl orchestrator. It owns the
// lifecycle of a single crawl: admitting seeds, dispatching a
// semaphore-bounded pool of fetch workers, pacing each host through
// pkg/limiter, and broadcasting every completed Page to subscribers. It
// depends on transform.Transformer for content transformation and never
// imports extractor, sanitizer, mdconvert, assets, or normalize directly.
package engine

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/page"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/storage"
	"github.com/rohmanhakim/docs-crawler/internal/transform"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

// dispatchPollInterval is how long the dispatcher waits before rechecking
// the frontier after finding it momentarily empty while workers are still
// in flight and may yet submit more candidates.
const dispatchPollInterval = 5 * time.Millisecond

// Engine is the sole control-plane authority of a concurrent crawl,
// generalizing the single-threaded scheduler's admission discipline
// (robots -> frontier, nothing else may enqueue) across a worker pool:
//   - Engine is the ONLY component allowed to decide whether a URL may
//     enter the crawl frontier.
//   - The robots.txt and host scope checks are completed before a URL
//     reaches the frontier; the frontier's Submit applies dedupe, depth,
//     page-count and per-host budget limits.
//   - Pipeline/transform stages classify failure but never decide retry,
//     continuation, or abortion.
type Engine struct {
	lifecycle

	cfg        config.Config
	retryParam retry.RetryParam
	scope      page.Scope

	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	robot          robots.Robot
	frontier       frontier.Frontier
	backend        fetcher.Fetcher
	transformer    transform.Transformer
	storageSink    storage.Sink
	rateLimiter    limiter.RateLimiter
	sleeper        timeutil.Sleeper

	broadcaster *Broadcaster

	sem           chan struct{}
	activeWorkers atomic.Int32

	mu           sync.Mutex
	writeResults []storage.WriteResult
	totalErrors  int
}

// New builds an Engine from a validated Config and every collaborator
// the crawl loop drives. A nil metadataSink, crawlFrontier, rateLimiter,
// or sleeper falls back to a real default implementation, and a nil
// crawlFinalizer skips the final stats record; robot, backend,
// transformer, and storageSink have no default and must be non-nil.
func New(
	cfg config.Config,
	metadataSink metadata.MetadataSink,
	crawlFinalizer metadata.CrawlFinalizer,
	robot robots.Robot,
	crawlFrontier frontier.Frontier,
	backend fetcher.Fetcher,
	transformer transform.Transformer,
	storageSink storage.Sink,
	rateLimiter limiter.RateLimiter,
	sleeper timeutil.Sleeper,
) (*Engine, error) {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if crawlFrontier == nil {
		crawlFrontier = frontier.NewCrawlFrontier()
	}
	if rateLimiter == nil {
		rateLimiter = limiter.NewConcurrentRateLimiter()
	}
	if sleeper == nil {
		s := timeutil.NewRealSleeper()
		sleeper = &s
	}

	if len(cfg.SeedURLs()) == 0 {
		return nil, &EngineError{
			Message:   "Build requires at least one seed URL",
			Retryable: false,
			Cause:     ErrCauseNoSeedURLs,
		}
	}

	blacklist, err := compilePatterns(cfg.Blacklist())
	if err != nil {
		return nil, &EngineError{Message: err.Error(), Retryable: false, Cause: ErrCauseNoSeedURLs}
	}
	whitelist, err := compilePatterns(cfg.Whitelist())
	if err != nil {
		return nil, &EngineError{Message: err.Error(), Retryable: false, Cause: ErrCauseNoSeedURLs}
	}

	concurrency := cfg.Concurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	return &Engine{
		cfg: cfg,
		retryParam: retry.NewRetryParam(
			cfg.BaseDelay(),
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
		),
		scope: page.Scope{
			AllowSubdomains: cfg.AllowSubdomains(),
			AllowTLD:        cfg.AllowTLD(),
			RespectNofollow: cfg.RespectNofollow(),
			Blacklist:       blacklist,
			Whitelist:       whitelist,
		},
		metadataSink:   metadataSink,
		crawlFinalizer: crawlFinalizer,
		robot:          robot,
		frontier:       crawlFrontier,
		backend:        backend,
		transformer:    transformer,
		storageSink:    storageSink,
		rateLimiter:    rateLimiter,
		sleeper:        sleeper,
		broadcaster:    NewBroadcaster(),
		sem:            make(chan struct{}, concurrency),
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Subscribe registers a channel that receives every Page the crawl
// completes, from this point forward. The returned release func must be
// called once the subscriber is done.
func (e *Engine) Subscribe(capacity int) (<-chan *page.Page, func()) {
	return e.broadcaster.Subscribe(capacity)
}

// Crawl runs the concurrent crawl to completion: admits every seed,
// dispatches a semaphore-bounded worker per frontier entry as it becomes
// available, and blocks until the frontier is drained and every
// in-flight worker has finished. Safe to call exactly once per Engine.
func (e *Engine) Crawl(ctx context.Context) (CrawlResult, failure.ClassifiedError) {
	if !e.transition(StateIdle, StateRunning) {
		return CrawlResult{}, &EngineError{
			Message:   "Crawl called on an engine that is not idle",
			Retryable: false,
			Cause:     ErrCauseAlreadyRunning,
		}
	}

	start := time.Now()
	defer e.finish(start)

	e.robot.Init(e.cfg.UserAgent())
	e.frontier.Init(e.cfg)

	for _, seed := range e.cfg.SeedURLs() {
		if admitErr := e.admitURL(seed, 0, frontier.SourceSeed); admitErr != nil {
			e.recordAdmissionError(admitErr, seed)
		}
	}

	e.dispatch(ctx)

	e.transition(StateRunning, StateDraining)
	e.broadcaster.SubscribeGuard().Wait()
	e.broadcaster.CloseAll()
	e.transition(StateDraining, StateStopped)

	e.mu.Lock()
	defer e.mu.Unlock()
	return CrawlResult{
		WriteResults: e.writeResults,
		TotalPages:   e.frontier.VisitedCount(),
		TotalErrors:  e.totalErrors,
		Lagged:       e.broadcaster.Lagged(),
	}, nil
}

// dispatch runs the scheduler loop: drain the frontier into a bounded
// worker pool, polling briefly whenever the frontier is momentarily
// empty but workers are still in flight and may yet submit more
// candidates. It returns once the frontier is empty and no worker
// remains active, which is the only state from which no further
// candidate can ever be submitted.
func (e *Engine) dispatch(ctx context.Context) {
	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		token, ok := e.frontier.Dequeue()
		if !ok {
			if e.activeWorkers.Load() == 0 {
				wg.Wait()
				return
			}
			e.sleeper.Sleep(dispatchPollInterval)
			continue
		}

		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}

		e.activeWorkers.Add(1)
		wg.Add(1)
		go func(token frontier.CrawlToken) {
			defer wg.Done()
			e.runWorker(ctx, token)
		}(token)
	}
}

func (e *Engine) finish(start time.Time) {
	if e.crawlFinalizer == nil {
		return
	}
	e.mu.Lock()
	totalErrors := e.totalErrors
	e.mu.Unlock()
	e.crawlFinalizer.RecordFinalCrawlStats(
		e.frontier.VisitedCount(),
		totalErrors,
		0,
		time.Since(start),
	)
}

// runWorker fetches one frontier token, extracts and admits its
// discovered links, transforms the fetched Page, persists the result,
// and broadcasts the frozen Page to subscribers. Every stage records its
// own failure through metadataSink; runWorker only aggregates counts.
func (e *Engine) runWorker(ctx context.Context, token frontier.CrawlToken) {
	defer func() {
		e.activeWorkers.Add(-1)
		<-e.sem
	}()

	host := token.URL().Hostname()
	e.sleeper.Sleep(e.rateLimiter.ResolveDelay(host))

	fetchParam := fetcher.NewFetchParam(token.URL(), e.cfg.UserAgent())
	fetchResult, fetchErr := e.backend.Fetch(ctx, token.Depth(), fetchParam, e.retryParam)
	e.rateLimiter.MarkLastFetchAsNow(host)
	if fetchErr != nil {
		e.countError()
		return
	}

	p := page.New(
		token.URL(),
		fetchResult.FinalURL(),
		fetchResult.Code(),
		fetchResult.Headers(),
		fetchResult.Body(),
		fetchResult.FetchedAt(),
		token.Depth(),
	)

	links, linkErr := p.ExtractLinks(e.scope)
	if linkErr != nil {
		e.metadataSink.RecordError(
			time.Now(),
			"engine",
			"Page.ExtractLinks",
			metadata.CauseContentInvalid,
			linkErr.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, token.URL().String())},
		)
		e.countError()
	}

	for _, link := range links {
		if admitErr := e.admitURL(link.URL, link.Depth, frontier.SourceCrawl); admitErr != nil {
			e.recordAdmissionError(admitErr, link.URL)
			e.countError()
		}
	}

	doc, transformErr := e.transformer.Transform(ctx, p)
	if transformErr != nil {
		e.countError()
		return
	}

	writeResult, writeErr := e.storageSink.Write(e.cfg.OutputDir(), doc, e.cfg.HashAlgo())
	if writeErr != nil {
		e.countError()
		return
	}

	e.mu.Lock()
	e.writeResults = append(e.writeResults, writeResult)
	e.mu.Unlock()

	p.Freeze()
	e.broadcaster.Publish(p)
}

// admitURL runs the single admission choke point every discovered or
// seed URL passes through before the frontier ever sees it: host scope,
// then robots.txt. No other code path may call Frontier.Submit.
func (e *Engine) admitURL(u url.URL, depth int, source frontier.SourceContext) failure.ClassifiedError {
	if allowed := e.cfg.AllowedHosts(); len(allowed) > 0 {
		if _, ok := allowed[strings.ToLower(u.Hostname())]; !ok {
			return nil
		}
	}

	decision, robotsErr := e.robot.Decide(u)
	if robotsErr != nil {
		return robotsErr
	}

	e.rateLimiter.ResetBackoff(u.Hostname())
	if decision.CrawlDelay > 0 {
		e.rateLimiter.SetCrawlDelay(u.Hostname(), decision.CrawlDelay)
	}

	if !decision.Allowed {
		return nil
	}

	candidate := frontier.NewCrawlAdmissionCandidate(
		decision.Url,
		source,
		frontier.NewDiscoveryMetadata(depth, nil),
	)
	e.frontier.Submit(candidate)
	return nil
}

// recordAdmissionError records a robots-classified admission failure and
// applies exponential backoff to its host when the cause warrants it.
func (e *Engine) recordAdmissionError(err failure.ClassifiedError, target url.URL) {
	robotsErr, ok := err.(*robots.RobotsError)
	if !ok {
		return
	}
	if robotsErr.Cause == robots.ErrCauseHttpTooManyRequests || robotsErr.Cause == robots.ErrCauseHttpServerError {
		e.metadataSink.RecordError(
			time.Now(),
			"engine",
			"admitURL",
			metadata.CauseNetworkFailure,
			robotsErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, target.String()),
				metadata.NewAttr(metadata.AttrHost, target.Host),
			},
		)
		e.rateLimiter.Backoff(target.Host)
	}
}

func (e *Engine) countError() {
	e.mu.Lock()
	e.totalErrors++
	e.mu.Unlock()
}

// CrawlResult is the terminal outcome of a completed Crawl.
type CrawlResult struct {
	WriteResults []storage.WriteResult
	TotalPages   int
	TotalErrors  int
	Lagged       int64
}
