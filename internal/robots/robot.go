package robots

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

// ruleSetStore caches a ruleSet per host for the lifetime of a crawl.
// Held behind a pointer so CachedRobot itself stays comparable with ==.
type ruleSetStore struct {
	mu    sync.Mutex
	rules map[string]ruleSet
}

func (s *ruleSetStore) get(host string) (ruleSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rules[host]
	return rs, ok
}

func (s *ruleSetStore) put(host string, rs ruleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[host] = rs
}

// Robot is the port the engine depends on: decide whether a URL may
// be fetched under its host's robots.txt. CachedRobot is the only
// implementation.
type Robot interface {
	Init(userAgent string)
	Decide(target url.URL) (Decision, *RobotsError)
}

// CachedRobot decides whether a URL may be crawled under the target
// host's robots.txt, fetching and caching a ruleSet per host for the
// crawl's duration.
type CachedRobot struct {
	sink      metadata.MetadataSink
	userAgent string
	fetcher   *RobotsFetcher
	cache     cache.Cache
	store     *ruleSetStore
}

// NewCachedRobot constructs a robot bound to sink for error reporting.
// Init or InitWithCache must be called before Decide.
func NewCachedRobot(sink metadata.MetadataSink) CachedRobot {
	return CachedRobot{
		sink:  sink,
		store: &ruleSetStore{rules: make(map[string]ruleSet)},
	}
}

// Init wires a fresh in-memory cache and the given user agent.
func (c *CachedRobot) Init(userAgent string) {
	c.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache wires a caller-supplied cache, letting callers share a
// cache across robots (or across runs, if they choose to).
func (c *CachedRobot) InitWithCache(userAgent string, ca cache.Cache) {
	c.userAgent = userAgent
	c.cache = ca
	c.fetcher = NewRobotsFetcher(c.sink, userAgent, ca)
}

// Decide fetches (or reuses a cached) robots.txt for target's host and
// reports whether target may be crawled under the resolved user-agent
// group. The per-host ruleSet is fetched at most once per crawl.
func (c CachedRobot) Decide(target url.URL) (Decision, *RobotsError) {
	host := target.Host

	rs, ok := c.store.get(host)
	if !ok {
		scheme := target.Scheme
		if scheme == "" {
			scheme = "https"
		}

		result, err := c.fetcher.Fetch(context.Background(), scheme, host)
		if err != nil {
			if c.sink != nil {
				c.sink.RecordError(
					time.Now(),
					"robots",
					"fetch",
					mapRobotsErrorToMetadataCause(err),
					err.Error(),
					[]metadata.Attribute{metadata.NewAttr(metadata.AttrHost, host)},
				)
			}
			return Decision{}, err
		}

		rs = MapResponseToRuleSet(result.Response, c.userAgent, result.FetchedAt)
		c.store.put(host, rs)
	}

	return evaluateDecision(rs, target), nil
}

// evaluateDecision applies the standard robots.txt longest-match rule:
// the most specific matching allow/disallow rule wins, and an allow
// rule wins ties against a disallow rule of equal specificity.
func evaluateDecision(rs ruleSet, target url.URL) Decision {
	var delay time.Duration
	if rs.crawlDelay != nil {
		delay = *rs.crawlDelay
	}

	if !rs.hasGroups {
		return Decision{Url: target, Allowed: true, Reason: EmptyRuleSet, CrawlDelay: delay}
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched, CrawlDelay: delay}
	}

	path := target.Path
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	matched := false
	bestLen := -1
	bestAllow := true

	for _, r := range rs.disallowRules {
		if matchRobotsPattern(path, r.prefix) {
			matched = true
			if len(r.prefix) > bestLen {
				bestLen = len(r.prefix)
				bestAllow = false
			}
		}
	}
	for _, r := range rs.allowRules {
		if matchRobotsPattern(path, r.prefix) {
			matched = true
			if len(r.prefix) >= bestLen {
				bestLen = len(r.prefix)
				bestAllow = true
			}
		}
	}

	if !matched {
		return Decision{Url: target, Allowed: true, Reason: NoMatchingRules, CrawlDelay: delay}
	}

	reason := DisallowedByRobots
	if bestAllow {
		reason = AllowedByRobots
	}
	return Decision{Url: target, Allowed: bestAllow, Reason: reason, CrawlDelay: delay}
}

// matchRobotsPattern matches path against a robots.txt rule pattern
// that may contain "*" (any sequence) and a trailing "$" (anchors the
// match to the end of path rather than treating it as a prefix match).
func matchRobotsPattern(path, pattern string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	segments := strings.Split(pattern, "*")
	pos := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		idx := strings.Index(path[pos:], seg)
		if idx == -1 {
			return false
		}
		if i == 0 && idx != 0 {
			return false
		}
		pos += idx + len(seg)
	}

	if anchored && pos != len(path) {
		return false
	}
	return true
}
