package frontier

import (
	"net/url"
	"sync"

	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain BFS ordering across discovered depths
- Deduplicate URLs via a canonical-URL visited Set
- Track crawl depth
- Prevent infinite traversal (depth ceiling, total page budget, per-host budget)
- Knows nothing about:
	- fetching
	- extraction
	- markdown
	- storage
	- robots.txt (the engine gates a candidate on robots.txt before ever
	  constructing a CrawlAdmissionCandidate; Submit must not re-evaluate
	  admission semantics the candidate already carries)

It is a data structure + policy module, not a pipeline executor.
*/

// Frontier is the admission-ordered queue the engine drives. It exists
// so the engine can be wired against a test double without depending on
// CrawlFrontier's concrete locking and budget bookkeeping.
type Frontier interface {
	Init(cfg config.Config)
	Submit(candidate CrawlAdmissionCandidate)
	Dequeue() (CrawlToken, bool)
	IsDepthExhausted(depth int) bool
	CurrentMinDepth() int
	VisitedCount() int
}

var _ Frontier = (*CrawlFrontier)(nil)

// CrawlFrontier orders CrawlTokens strictly by depth: every token at
// depth N is made available for Dequeue before any token at depth N+1,
// regardless of the order Submit calls arrive in. One FIFOQueue per
// depth level preserves within-depth discovery order; a running
// minDepth/maxSeenDepth pair lets Dequeue skip empty or never-created
// depth levels without indexing into a nil queue.
type CrawlFrontier struct {
	mu            sync.Mutex
	queuesByDepth map[int]*FIFOQueue[CrawlToken]
	visited       Set[string]
	budget        *BudgetTracker

	minDepth     int // depth of the lowest non-empty queue, -1 when empty
	maxSeenDepth int // highest depth ever submitted, -1 when nothing submitted

	maxDepth int // config.MaxDepth(); 0 means unlimited
	maxPages int // config.MaxPages(); 0 means unlimited
}

// NewCrawlFrontier constructs an empty frontier. Init must be called
// before Submit/Dequeue to apply a Config's limits.
func NewCrawlFrontier() *CrawlFrontier {
	return &CrawlFrontier{
		queuesByDepth: make(map[int]*FIFOQueue[CrawlToken]),
		visited:       NewSet[string](),
		budget:        NewBudgetTracker(nil),
		minDepth:      -1,
		maxSeenDepth:  -1,
	}
}

// Init applies a Config's limits to the frontier. Safe to call once,
// before any Submit.
func (f *CrawlFrontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxDepth = cfg.MaxDepth()
	f.maxPages = cfg.MaxPages()
	f.budget = NewBudgetTracker(cfg.HostBudget())
}

// Submit admits a candidate into the frontier, or silently drops it.
// The candidate is assumed already admitted by the engine (robots,
// scope); Submit applies only dedupe, depth ceiling, page count, and
// per-host budget checks,
// in that order, matching the decision that a URL already visited is
// never re-evaluated against depth or budget even if resubmitted at a
// different depth.
func (f *CrawlFrontier) Submit(candidate CrawlAdmissionCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := canonicalKey(candidate.TargetURL())
	if f.visited.Contains(key) {
		return
	}

	depth := candidate.DiscoveryMetadata().Depth()
	if f.maxDepth > 0 && depth > f.maxDepth {
		return
	}

	if f.maxPages > 0 && f.visited.Size() >= f.maxPages {
		return
	}

	host := candidate.TargetURL().Hostname()
	if !f.budget.TryAdmit(host) {
		return
	}

	f.visited.Add(key)

	q, ok := f.queuesByDepth[depth]
	if !ok {
		q = NewFIFOQueue[CrawlToken]()
		f.queuesByDepth[depth] = q
	}
	q.Enqueue(NewCrawlToken(candidate.TargetURL(), depth))

	if depth > f.maxSeenDepth {
		f.maxSeenDepth = depth
	}
	if f.minDepth == -1 || depth < f.minDepth {
		f.minDepth = depth
	}
}

// Dequeue pops the next CrawlToken in strict BFS (depth-then-FIFO)
// order. Returns false once every depth level has been drained.
func (f *CrawlFrontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.minDepth != -1 {
		q, ok := f.queuesByDepth[f.minDepth]
		if !ok || q.Size() == 0 {
			f.advanceMinDepthLocked()
			continue
		}
		token, _ := q.Dequeue()
		if q.Size() == 0 {
			f.advanceMinDepthLocked()
		}
		return token, true
	}

	var zero CrawlToken
	return zero, false
}

// advanceMinDepthLocked scans forward from the current minDepth for the
// next depth carrying a non-empty queue, up to maxSeenDepth. Sets
// minDepth to -1 if none is found. Caller must hold mu.
func (f *CrawlFrontier) advanceMinDepthLocked() {
	for d := f.minDepth + 1; d <= f.maxSeenDepth; d++ {
		if q, ok := f.queuesByDepth[d]; ok && q.Size() > 0 {
			f.minDepth = d
			return
		}
	}
	f.minDepth = -1
}

// ReleaseBudget gives back a per-host budget slot. The engine does not
// call it: robots.txt and host scope are checked before Submit, so a URL
// counted against budget is never dropped afterwards.
func (f *CrawlFrontier) ReleaseBudget(host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budget.Release(host)
}

// IsDepthExhausted reports whether no token is pending at depth. A
// negative depth is always exhausted since it cannot be submitted to.
func (f *CrawlFrontier) IsDepthExhausted(depth int) bool {
	if depth < 0 {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queuesByDepth[depth]
	return !ok || q.Size() == 0
}

// CurrentMinDepth returns the lowest depth with a pending token, or -1
// if the frontier is empty.
func (f *CrawlFrontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minDepth
}

// VisitedCount reports how many unique canonical URLs have ever been
// admitted. It never decreases: the visited set is append-only, since
// a URL dequeued and processed must still block a later resubmission.
func (f *CrawlFrontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

func canonicalKey(u url.URL) string {
	c := urlutil.Canonicalize(u)
	return c.String()
}
