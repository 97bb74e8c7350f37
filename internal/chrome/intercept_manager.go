package chrome

import (
	_ "embed"
	"strings"

	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

//go:embed blocklists/generic_scripts.txt
var genericScriptsList string

//go:embed blocklists/generic_stylesheets.txt
var genericStylesheetsList string

//go:embed blocklists/generic_xhr.txt
var genericXHRList string

// ResourceClass is the coarse request kind InterceptManager classifies
// paused requests into, mirroring Fetch.requestPaused's resourceType.
type ResourceClass int

const (
	ResourceScript ResourceClass = iota
	ResourceStylesheet
	ResourceXHR
)

// knownDomains mirrors the Rust pack's phf_map! classification of major
// ad/tracking-adjacent high-traffic domains
// (handler/blockers/intercept_manager.rs). No perfect-hash-equivalent
// dependency is pulled in for this - the pack carries no Go perfect-hash
// library - so a plain map literal is used deliberately here; this is the
// one place in the package that reaches for stdlib map[string]T instead
// of a pack-grounded data structure.
var knownDomains = map[string]struct{}{
	"tiktok.com": {}, "facebook.com": {}, "amazon.com": {}, "x.com": {},
	"linkedin.com": {}, "netflix.com": {}, "medium.com": {}, "upwork.com": {},
	"glassdoor.com": {}, "ebay.com": {}, "nytimes.com": {}, "wikipedia.org": {},
	"tcgplayer.com": {},
}

// commonTrackingPaths/commonStylesheetPaths seed each known domain's
// per-resource tries. The Rust pack's per-domain path data (beyond the
// classification enum and the shared generic list) wasn't present in the
// retrieved source, so every known domain currently shares this
// representative path vocabulary rather than a domain-tailored one -
// the trie-per-domain structure is ready for real per-domain data once
// it's available.
var commonTrackingPaths = []string{"/ads", "/analytics", "/tracking", "/beacon", "/pixel", "/telemetry"}
var commonStylesheetPaths = []string{"/ads", "/promo"}

// domainBlockerSet holds the three per-resource-class path tries used to
// classify requests made while the browser is on one known, high-traffic
// registrable domain.
type domainBlockerSet struct {
	scripts     *urlutil.Trie[struct{}]
	stylesheets *urlutil.Trie[struct{}]
	xhr         *urlutil.Trie[struct{}]
}

func newDomainBlockerSet() *domainBlockerSet {
	set := &domainBlockerSet{
		scripts:     urlutil.NewTrie[struct{}](),
		stylesheets: urlutil.NewTrie[struct{}](),
		xhr:         urlutil.NewTrie[struct{}](),
	}
	for _, path := range commonTrackingPaths {
		set.scripts.Insert(path, struct{}{})
		set.xhr.Insert(path, struct{}{})
	}
	for _, path := range commonStylesheetPaths {
		set.stylesheets.Insert(path, struct{}{})
	}
	return set
}

func (s *domainBlockerSet) trieFor(class ResourceClass) *urlutil.Trie[struct{}] {
	switch class {
	case ResourceStylesheet:
		return s.stylesheets
	case ResourceXHR:
		return s.xhr
	default:
		return s.scripts
	}
}

// InterceptManager classifies a paused request against the blocklist
// matching the page's registrable domain, falling through to a shared
// generic prefix list for every other host.
type InterceptManager struct {
	sets           map[string]*domainBlockerSet
	genericScripts []string
	genericStyles  []string
	genericXHR     []string
}

// NewInterceptManager builds the domain trie set and parses the embedded
// generic prefix lists once, at construction time.
func NewInterceptManager() *InterceptManager {
	sets := make(map[string]*domainBlockerSet, len(knownDomains))
	for domain := range knownDomains {
		sets[domain] = newDomainBlockerSet()
	}
	return &InterceptManager{
		sets:           sets,
		genericScripts: splitNonEmptyLines(genericScriptsList),
		genericStyles:  splitNonEmptyLines(genericStylesheetsList),
		genericXHR:     splitNonEmptyLines(genericXHRList),
	}
}

// ShouldBlock reports whether a request for requestURL, classified as
// class, made while the browser is on pageHost, should be dropped via
// Fetch.failRequest instead of allowed through.
func (m *InterceptManager) ShouldBlock(pageHost, requestURL string, class ResourceClass) bool {
	domain := registrableDomain(pageHost)
	if set, ok := m.sets[domain]; ok {
		trie := set.trieFor(class)
		if _, found := trie.Search(requestURL); found {
			return true
		}
		if _, found := trie.LongestPrefixValue(requestURL); found {
			return true
		}
	}

	for _, prefix := range m.genericListFor(class) {
		if strings.Contains(requestURL, prefix) {
			return true
		}
	}
	return false
}

func (m *InterceptManager) genericListFor(class ResourceClass) []string {
	switch class {
	case ResourceStylesheet:
		return m.genericStyles
	case ResourceXHR:
		return m.genericXHR
	default:
		return m.genericScripts
	}
}

func splitNonEmptyLines(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// registrableDomain ports the Rust classifier's naive last-two-labels
// rule (intercept_manager.rs) rather than a public-suffix-list lookup,
// matching its behavior - and its known ccTLD blind spot - exactly.
func registrableDomain(host string) string {
	host = strings.TrimSuffix(host, ".")
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}
