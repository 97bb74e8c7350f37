package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ErrNotCrawlable is returned by Resolve when an href cannot produce a
// crawlable absolute URL (tel:, mailto:, javascript:, or an empty href).
type ErrNotCrawlable struct {
	Href string
}

func (e *ErrNotCrawlable) Error() string {
	return fmt.Sprintf("not a crawlable URL: %q", e.Href)
}

var nonCrawlableSchemes = []string{"tel:", "mailto:", "javascript:"}

// Resolve turns an href found on a page into an absolute URL relative to
// base. It rejects tel:, mailto:, javascript: and empty hrefs, inherits
// the base scheme for protocol-relative hrefs ("//host/path"), resolves
// relative hrefs against base per RFC 3986, and drops the fragment while
// preserving the query string.
func Resolve(base url.URL, href string) (url.URL, error) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return url.URL{}, &ErrNotCrawlable{Href: href}
	}

	lower := strings.ToLower(trimmed)
	for _, scheme := range nonCrawlableSchemes {
		if strings.HasPrefix(lower, scheme) {
			return url.URL{}, &ErrNotCrawlable{Href: href}
		}
	}

	if strings.HasPrefix(trimmed, "//") {
		trimmed = base.Scheme + ":" + trimmed
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return url.URL{}, &ErrNotCrawlable{Href: href}
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return url.URL{}, &ErrNotCrawlable{Href: href}
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""

	return *resolved, nil
}
