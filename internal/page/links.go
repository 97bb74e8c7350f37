package page

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/rohmanhakim/docs-crawler/pkg/urlutil"
)

// mediaExtensions are excluded from link extraction: images, video,
// audio, archives, documents, stylesheets, scripts, fonts.
var mediaExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp",
	".mp4", ".webm", ".mov", ".avi",
	".mp3", ".wav", ".ogg",
	".zip", ".tar", ".gz", ".rar", ".7z",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".css", ".js", ".mjs",
	".woff", ".woff2", ".ttf", ".eot",
}

// Scope controls which anchors ExtractLinks considers in scope for the
// crawl and which are filtered out after resolution.
type Scope struct {
	// AllowSubdomains additionally matches anchors on any subdomain of
	// the page's registrable domain.
	AllowSubdomains bool
	// AllowTLD additionally matches anchors on the same registrable
	// name under any top-level domain (example.com, example.de, ...).
	AllowTLD bool
	// RespectNofollow excludes anchors carrying rel="nofollow". Off by
	// default: nofollow is not auto-excluded unless a policy enables it.
	RespectNofollow bool
	Blacklist       []*regexp.Regexp
	Whitelist       []*regexp.Regexp
}

// ExtractedLink is one in-scope link found on a Page.
type ExtractedLink struct {
	URL   url.URL
	Depth int
	// SameDepth marks a link that must be enqueued at the parent's
	// depth rather than parent depth + 1 (meta-refresh / Refresh:
	// redirect targets).
	SameDepth bool
}

// ExtractLinks parses the Page's document (if not already parsed),
// composes a CSS selector scoping the anchors to consider, resolves each
// matched href to an absolute URL, and filters by blacklist/whitelist and
// scope. Extraction is deterministic with respect to document order and
// never follows <base href> for scoping, only for resolution (handled by
// goquery's own base-aware attribute resolution... this package resolves
// explicitly via urlutil.Resolve instead, using the Page's final URL as
// base, so a document <base href> only matters if it was honored when
// the href was already made absolute by the browser/fetcher upstream).
func (p *Page) ExtractLinks(scope Scope) ([]ExtractedLink, error) {
	doc, err := p.Document()
	if err != nil {
		return nil, fmt.Errorf("page: parse document: %w", err)
	}

	base := p.finalURL
	registrable, _ := publicsuffix.EffectiveTLDPlusOne(base.Hostname())

	selector := composeAnchorSelector(base, scope, registrable)

	var links []ExtractedLink
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}

		resolved, resolveErr := urlutil.Resolve(base, href)
		if resolveErr != nil {
			return
		}

		if !hostInScope(resolved.Hostname(), base.Hostname(), registrable, scope) {
			return
		}

		if scope.RespectNofollow {
			if rel, ok := s.Attr("rel"); ok && hasRelToken(rel, "nofollow") {
				return
			}
		}

		full := resolved.String()
		if isBlacklisted(full, scope.Blacklist) {
			return
		}
		if len(scope.Whitelist) > 0 && !isWhitelisted(full, scope.Whitelist) {
			return
		}

		links = append(links, ExtractedLink{URL: resolved, Depth: p.depth + 1})
	})

	links = append(links, p.extractRefreshRedirect(base)...)

	return links, nil
}

// extractRefreshRedirect recognizes an HTTP Refresh: response header or a
// <meta http-equiv="refresh"> tag and, if present, returns its target as
// a same-depth link (a redirect, not a newly discovered child page).
func (p *Page) extractRefreshRedirect(base url.URL) []ExtractedLink {
	var content string
	if v, ok := p.Header("Refresh"); ok {
		content = v
	} else {
		doc, err := p.Document()
		if err != nil {
			return nil
		}
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			equiv, _ := s.Attr("http-equiv")
			if !strings.EqualFold(equiv, "refresh") {
				return true
			}
			content, _ = s.Attr("content")
			return false
		})
	}

	if content == "" {
		return nil
	}

	target := parseRefreshTarget(content)
	if target == "" {
		return nil
	}

	resolved, err := urlutil.Resolve(base, target)
	if err != nil {
		return nil
	}

	return []ExtractedLink{{URL: resolved, Depth: p.depth, SameDepth: true}}
}

// parseRefreshTarget extracts the url= portion of a "N; url=target"
// Refresh value. Returns "" if no url= segment is present.
func parseRefreshTarget(content string) string {
	parts := strings.SplitN(content, ";", 2)
	if len(parts) != 2 {
		return ""
	}
	rest := strings.TrimSpace(parts[1])
	lower := strings.ToLower(rest)
	idx := strings.Index(lower, "url=")
	if idx == -1 {
		return ""
	}
	target := rest[idx+len("url="):]
	target = strings.Trim(target, `"' `)
	return target
}

func hasRelToken(rel, token string) bool {
	for _, part := range strings.Fields(rel) {
		if strings.EqualFold(part, token) {
			return true
		}
	}
	return false
}

func isBlacklisted(u string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

func isWhitelisted(u string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// hostInScope re-validates, after absolute resolution, that a candidate
// host is actually in scope. The composed CSS selector is a fast
// pre-filter; this is the authoritative check.
func hostInScope(candidateHost, baseHost, registrable string, scope Scope) bool {
	if strings.EqualFold(candidateHost, baseHost) {
		return true
	}

	if registrable == "" {
		return false
	}

	candidateRegistrable, err := publicsuffix.EffectiveTLDPlusOne(candidateHost)
	if err != nil {
		return false
	}

	if scope.AllowSubdomains && strings.EqualFold(candidateHost, registrable) {
		return true
	}
	if scope.AllowSubdomains && strings.HasSuffix(strings.ToLower(candidateHost), "."+strings.ToLower(registrable)) {
		return true
	}

	if scope.AllowTLD {
		candidateLabel := registrableLabel(candidateRegistrable)
		baseLabel := registrableLabel(registrable)
		if candidateLabel != "" && strings.EqualFold(candidateLabel, baseLabel) {
			return true
		}
	}

	return false
}

// registrableLabel returns the second-level label of a registrable
// domain ("example" from "example.com"), used by the tld scope rule to
// compare across different top-level domains.
func registrableLabel(registrable string) string {
	idx := strings.Index(registrable, ".")
	if idx == -1 {
		return registrable
	}
	return registrable[:idx]
}

// composeAnchorSelector builds the CSS selector scoping which anchors
// link extraction considers, per the same-origin / relative / subdomain
// / tld / extension-exclusion rules. The result is a pre-filter only:
// every matched anchor is still resolved and re-checked against scope
// after resolution (hostInScope), because substring/prefix CSS selectors
// cannot fully express registrable-domain comparison.
func composeAnchorSelector(base url.URL, scope Scope, registrable string) string {
	origin := fmt.Sprintf("%s://%s", base.Scheme, base.Host)

	parts := []string{
		fmt.Sprintf(`a[href^=%q]`, origin),
		`a[href^="/"]`,
	}

	if scope.AllowSubdomains && registrable != "" {
		parts = append(parts, fmt.Sprintf(`a[href*=".%s."]`, registrable))
		parts = append(parts, fmt.Sprintf(`a[href*=".%s/"]`, registrable))
		parts = append(parts, fmt.Sprintf(`a[href$=".%s"]`, registrable))
	}

	if scope.AllowTLD && registrable != "" {
		label := registrableLabel(registrable)
		if label != "" {
			parts = append(parts, fmt.Sprintf(`a[href*="%s."]`, label))
		}
	}

	exclusions := make([]string, 0, len(mediaExtensions))
	for _, ext := range mediaExtensions {
		exclusions = append(exclusions, fmt.Sprintf(`:not([href$=%q])`, ext))
	}
	exclusionSuffix := strings.Join(exclusions, "")

	for i, part := range parts {
		parts[i] = part + exclusionSuffix
	}

	return strings.Join(parts, ", ")
}
